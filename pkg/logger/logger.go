package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// ZapLogger wraps zap logger to implement the Logger interface.
type ZapLogger struct {
	logger *zap.Logger
}

// New creates a logger from the ENVIRONMENT and LOG_LEVEL variables.
// Services with a loaded config should prefer NewFromConfig.
func New() interfaces.Logger {
	env := os.Getenv("ENVIRONMENT")
	cfg := DefaultConfig()
	if env == "" || env == "development" || env == "dev" {
		cfg = DevelopmentConfig()
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// NewZap wraps an existing zap logger.
func NewZap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: l}
}

// Debug logs a debug message.
func (l *ZapLogger) Debug(msg string, fields ...interfaces.Field) {
	l.logger.Debug(msg, convertFields(fields)...)
}

// Info logs an info message.
func (l *ZapLogger) Info(msg string, fields ...interfaces.Field) {
	l.logger.Info(msg, convertFields(fields)...)
}

// Warn logs a warning message.
func (l *ZapLogger) Warn(msg string, fields ...interfaces.Field) {
	l.logger.Warn(msg, convertFields(fields)...)
}

// Error logs an error message.
func (l *ZapLogger) Error(msg string, fields ...interfaces.Field) {
	l.logger.Error(msg, convertFields(fields)...)
}

// Fatal logs a fatal message and exits.
func (l *ZapLogger) Fatal(msg string, fields ...interfaces.Field) {
	l.logger.Fatal(msg, convertFields(fields)...)
}

// WithContext returns a logger tagged with the request id stored in ctx, if any.
func (l *ZapLogger) WithContext(ctx context.Context) interfaces.Logger {
	if id := RequestID(ctx); id != "" {
		return &ZapLogger{logger: l.logger.With(zap.String("request_id", id))}
	}
	return l
}

// WithFields returns a logger with additional fields.
func (l *ZapLogger) WithFields(fields ...interfaces.Field) interfaces.Logger {
	return &ZapLogger{logger: l.logger.With(convertFields(fields)...)}
}

// Zap exposes the underlying zap logger for libraries that want one.
func (l *ZapLogger) Zap() *zap.Logger {
	return l.logger
}

// Sync flushes any buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

func convertFields(fields []interfaces.Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, field := range fields {
		switch v := field.Value.(type) {
		case string:
			zapFields[i] = zap.String(field.Key, v)
		case int:
			zapFields[i] = zap.Int(field.Key, v)
		case int64:
			zapFields[i] = zap.Int64(field.Key, v)
		case float64:
			zapFields[i] = zap.Float64(field.Key, v)
		case bool:
			zapFields[i] = zap.Bool(field.Key, v)
		case time.Duration:
			zapFields[i] = zap.Duration(field.Key, v)
		case error:
			zapFields[i] = zap.NamedError(field.Key, v)
		default:
			zapFields[i] = zap.Any(field.Key, v)
		}
	}
	return zapFields
}

// noop discards every entry. Fatal does not exit.
type noop struct{}

// NewNoop returns a logger that does nothing, for tests and as the
// FromContext fallback.
func NewNoop() interfaces.Logger {
	return &noop{}
}

func (n *noop) Debug(string, ...interfaces.Field) {}
func (n *noop) Info(string, ...interfaces.Field) {}
func (n *noop) Warn(string, ...interfaces.Field) {}
func (n *noop) Error(string, ...interfaces.Field) {}
func (n *noop) Fatal(string, ...interfaces.Field) {}
func (n *noop) WithContext(context.Context) interfaces.Logger { return n }
func (n *noop) WithFields(...interfaces.Field) interfaces.Logger { return n }
