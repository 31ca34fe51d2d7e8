// Package token generates opaque bearer tokens and their storage digests.
//
// Refresh tokens and password-reset tokens are 32 random bytes encoded with
// base64url (no padding). Only Hash(raw) is ever persisted; the raw value
// is handed to the caller exactly once.
//
//	raw, err := token.Generate()
//	if err != nil {
//	    return err
//	}
//	store.Save(ctx, token.Hash(raw))
package token
