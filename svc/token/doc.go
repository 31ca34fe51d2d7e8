// Package token manages the credential pair issued after authentication.
//
// Access tokens are HS256 JWTs (see pkg/jwt) carrying the account id,
// email, display name and provider, plus a random jti. They are valid
// until they expire; nothing revokes them early.
//
// Refresh tokens are opaque random strings. Stores only ever see their
// SHA-256 digest. Every use rotates the token: RotateRefreshToken revokes
// the presented token with a conditional write, so replaying an old token
// or racing two refreshes of the same token yields ErrInvalidRefreshToken
// for all but one caller.
//
// MemoryStore keeps tokens in process. Sweeper deletes expired tokens on an
// interval and is run by the daemon, never by the Service itself.
package token
