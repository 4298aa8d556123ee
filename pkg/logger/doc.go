// Package logger builds slog loggers for the notification service.
//
// New returns a *slog.Logger configured through Option functions: output
// format, level, static attributes and ContextExtractor callbacks that copy
// request-scoped values (such as the request id) into every record.
// WithEnvironment selects per-environment defaults and WithConfig applies the
// LOG_LEVEL and LOG_FORMAT overrides.
//
// Attribute helpers (RecipientID, NotificationID, SubscriptionID, Error, ...)
// keep key names consistent across packages.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "notifyd"),
//	    logger.WithConfig(cfg.Log),
//	    logger.WithContextExtractors(requestid.LogExtractor),
//	)
//	log.InfoContext(ctx, "stream opened", logger.RecipientID(id))
package logger
