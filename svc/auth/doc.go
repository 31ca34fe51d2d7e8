// Package auth is the authentication orchestrator.
//
// Service combines an account.Repository, a token service, a password
// hasher, federated verifiers and an EventSink into the public operations:
// Register, Login, FederatedAuth, RefreshToken, ValidateToken, Logout,
// LogoutAll, GetProfile, ForgotPassword, ResetPassword and ChangePassword.
//
//	svc := auth.NewService(accounts, tokens, hasher, sink,
//	    auth.WithVerifier(account.ProviderGoogle, google),
//	    auth.WithVerifier(account.ProviderApple, apple),
//	    auth.WithLogger(log),
//	)
//	res, err := svc.Login(ctx, email, password)
//	switch {
//	case errors.Is(err, auth.ErrInvalidCredentials):
//	    // 401
//	case err != nil && !auth.IsDomainError(err):
//	    // 503: err wraps ErrStoreUnavailable or ErrProviderUnavailable
//	}
//
// Each email belongs to exactly one provider. A federated sign-in whose
// email is held by another identity fails with ErrProviderConflict.
//
// ResetPassword revokes every refresh token of the account; ChangePassword
// does not. Events are emitted after the state change they describe and
// their delivery errors are only logged.
package auth
