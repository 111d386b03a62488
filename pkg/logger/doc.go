// Package logger provides structured logging for the agrimarket service.
//
// Components depend on the Logger interface and receive an implementation by
// injection. The default implementation is backed by zap:
//
//	log, err := logger.New(logger.Options{Level: "debug", Format: "console"})
//	log.Info("cart created", "cart_id", id, "owner", owner)
//	log.With(logger.F("component", "weather")).Warn("upstream slow")
//
// Fields may be passed either as alternating key/value pairs or as Field
// values; both forms can be mixed in one call.
//
// Tests use NewNop, which discards everything.
package logger
