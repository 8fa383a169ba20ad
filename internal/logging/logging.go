// Package logging passes request-scoped loggers through context. The HTTP
// middleware attaches a logger annotated with the request id; services and
// the responder pick it up so every line for one request correlates.
package logging

import (
	"context"
	"log/slog"
)

// loggerKey is unexported so only this package can attach or read the value.
type loggerKey struct{}

// ContextWithLogger derives a context carrying logger. A nil logger leaves
// the context untouched rather than shadowing an already attached one.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached to ctx, or nil when none was
// attached. Callers fall back to their own default on nil.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger
}
