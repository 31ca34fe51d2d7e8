// Package password hashes, verifies and validates user passwords.
//
// Hasher wraps golang.org/x/crypto/bcrypt with a configurable cost
// (default 12). Compare never distinguishes a malformed hash from a
// mismatch. ValidateStrength reports only the first failing rule so the
// message shown to a user is stable:
//
//	if err := password.ValidateStrength(pw); err != nil {
//	    var se *password.StrengthError
//	    errors.As(err, &se) // se.Rule == password.RuleDigit, ...
//	}
package password
