package logger

import (
	"context"
	"log/slog"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const LoggerKey ContextKey = "logger"

// FromContext retrieves the logger from the context.
// If no logger is found, it returns the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithMigration scopes the logger in the context to one migration run
// so that every log line carries the source problem id.
func WithMigration(ctx context.Context, polygonID string) context.Context {
	log := FromContext(ctx).With("polygon_id", polygonID)
	return WithLogger(ctx, log)
}

// WithRequestID adds a request ID to the logger in the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	log := FromContext(ctx).With("request_id", requestID)
	return WithLogger(ctx, log)
}
