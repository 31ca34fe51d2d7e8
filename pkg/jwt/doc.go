// Package jwt signs and verifies HS256 access tokens.
//
// It is a narrow wrapper around github.com/golang-jwt/jwt/v5 that pins the
// algorithm to HS256, requires an expiry claim and allows the clock to be
// injected for tests:
//
//	svc, err := jwt.NewFromString(cfg.SigningKey)
//	if err != nil {
//	    return err
//	}
//	signed, err := svc.Generate(&claims)
//	...
//	var parsed MyClaims
//	if err := svc.Parse(signed, &parsed); errors.Is(err, jwt.ErrExpiredToken) {
//	    ...
//	}
//
// Claims types embed jwt.RegisteredClaims.
package jwt
