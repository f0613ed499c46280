package logger

import (
	"context"

	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

type contextKey int

const (
	loggerKey contextKey = iota
	requestIDKey
)

// FromContext retrieves a logger from the context.
func FromContext(ctx context.Context) interfaces.Logger {
	if logger, ok := ctx.Value(loggerKey).(interfaces.Logger); ok {
		return logger
	}
	return NewNoop()
}

// WithContext adds a logger to the context.
func WithContext(ctx context.Context, logger interfaces.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithFields adds fields to the logger in the context.
func WithFields(ctx context.Context, fields ...interfaces.Field) context.Context {
	logger := FromContext(ctx)
	return WithContext(ctx, logger.WithFields(fields...))
}

// WithRequestID stores the request id used to tag log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored in ctx or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
