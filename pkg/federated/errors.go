package federated

import "errors"

var (
	// ErrInvalidToken covers every expected verification failure: malformed
	// token, unknown key, bad signature, wrong issuer or audience, expiry.
	ErrInvalidToken    = errors.New("federated: invalid identity token")
	ErrMissingClientID = errors.New("federated: client id is required")

	errMissingKeyID = errors.New("federated: token header has no kid")
)
