// Package logger builds *slog.Logger instances for authcore services.
//
// New applies functional options (format, level, output, static attributes,
// context extractors) and wraps the resulting handler with
// LogHandlerDecorator, which copies request-scoped values from the context
// into every record.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "authd"),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.InfoContext(ctx, "account registered",
//	    logger.AccountID(id),
//	    logger.Provider("password"),
//	)
//
// Attribute helpers in attr.go keep key names consistent across packages.
// Error returns an empty attribute for a nil error so callers can log
// unconditionally. Services that receive no logger use Noop.
package logger
