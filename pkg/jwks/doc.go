// Package jwks fetches and caches RSA signing keys published as a JSON Web
// Key Set.
//
// A KeySet is bound to one URL. Parsed keys live in a process-wide TTL cache
// (DefaultCache, 24h) keyed by URL, and concurrent cache misses collapse into
// a single HTTP request. Lookups for an unknown key id return ErrKeyNotFound
// without forcing a refetch; transport and decoding problems return errors
// wrapping ErrFetch.
package jwks
