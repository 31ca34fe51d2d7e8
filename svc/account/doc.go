// Package account defines the identity record shared by every auth
// provider and the repository contract that persists it.
//
// Emails are normalized (trimmed, lowercased) on write and on lookup and
// are unique across providers. A password identity carries a bcrypt hash;
// Google and Apple identities carry the provider's subject id instead.
// Repositories report missing rows with ErrNotFound and uniqueness
// violations with ErrAlreadyExists; every other error is infrastructure.
//
// MemoryRepository is the in-process implementation. SQL implementations
// live under storage/.
package account
