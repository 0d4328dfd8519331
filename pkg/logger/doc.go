// Package logger builds *slog.Logger instances for authpress services.
//
// New applies functional options over JSON-at-info defaults. WithEnvironment
// switches to text at debug outside production and staging. Records logged
// with a context pick up values registered through WithContextValue, which is
// how a request ID or remote address travels into authentication logs.
//
//	log := logger.New(
//	    logger.WithEnvironment("production", "authpress"),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.InfoContext(ctx, "second factor accepted",
//	    logger.UserID(user.ID),
//	    logger.Method("totp"),
//	)
//
// Attribute helpers in attr.go keep key names consistent. Helpers return an
// empty slog.Attr for nil or empty input, which slog drops.
//
// Nop returns a discarding logger for components constructed without one.
package logger
