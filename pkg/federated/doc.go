// Package federated verifies identity tokens issued by Google and Apple.
//
// Both verifiers check an RS256 signature against the provider's published
// JSON Web Key Set (see package jwks), then the issuer, the audience
// (the configured client id) and the expiry:
//
//	google, err := federated.NewGoogleVerifier(federated.GoogleConfig{ClientID: id})
//	info, err := google.Verify(ctx, idToken)
//	switch {
//	case errors.Is(err, federated.ErrInvalidToken):
//	    // reject the sign-in
//	case errors.Is(err, jwks.ErrFetch):
//	    // provider keys unavailable; fail closed
//	}
//
// Google's email_verified claim is accepted as a boolean or a string.
// Apple tokens may omit the email entirely.
package federated
