package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateTraceID returns a fresh UUID suitable as a trace ID when no
// request or span supplied one.
func GenerateTraceID() string {
	return uuid.New().String()
}

// EnsureTraceID returns a context that is guaranteed to carry a trace ID.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, GenerateTraceID())
}

// LoggerWithContext returns the process logger tagged with the
// context's trace ID, when one is present.
func LoggerWithContext(ctx context.Context) *slog.Logger {
	logger := GetLogger()
	if traceID := GetTraceID(ctx); traceID != "" {
		logger = logger.With("trace_id", traceID)
	}
	return logger
}

// WithComponent tags a logger with the component it serves.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}
