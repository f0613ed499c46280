package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	Level       string   `json:"level" yaml:"level"`
	Development bool     `json:"development" yaml:"development"`
	Encoding    string   `json:"encoding" yaml:"encoding"` // json or console
	OutputPaths []string `json:"output_paths" yaml:"output_paths"`
	ErrorPaths  []string `json:"error_paths" yaml:"error_paths"`

	// Rotation applies to every output path that is a file.
	Rotation RotationConfig `json:"rotation" yaml:"rotation"`

	// Additional fields to include in all logs
	InitialFields map[string]interface{} `json:"initial_fields" yaml:"initial_fields"`
}

// RotationConfig controls lumberjack file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int  `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int  `json:"max_age_days" yaml:"max_age_days"`
	Compress   bool `json:"compress" yaml:"compress"`
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Development: false,
		Encoding:    "json",
		OutputPaths: []string{"stdout"},
		ErrorPaths:  []string{"stderr"},
		Rotation:    RotationConfig{MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
	}
}

// DevelopmentConfig returns development logger configuration
func DevelopmentConfig() *Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.Development = true
	cfg.Encoding = "console"
	return cfg
}

// Build creates a logger from the configuration
func (c *Config) Build() (*ZapLogger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encCfg zapcore.EncoderConfig
	if c.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.MessageKey = "message"
		encCfg.LevelKey = "level"
		encCfg.CallerKey = "caller"
		encCfg.StacktraceKey = "stacktrace"
	}

	var encoder zapcore.Encoder
	if c.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, c.sink(c.OutputPaths, os.Stdout), zap.NewAtomicLevelAt(level))

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(c.sink(c.ErrorPaths, os.Stderr)),
	}
	if c.Development {
		opts = append(opts, zap.Development())
	}

	logger := zap.New(core, opts...)

	if len(c.InitialFields) > 0 {
		fields := make([]zap.Field, 0, len(c.InitialFields))
		for k, v := range c.InitialFields {
			fields = append(fields, zap.Any(k, v))
		}
		logger = logger.With(fields...)
	}

	return &ZapLogger{logger: logger}, nil
}

// sink maps output paths to writers. Anything other than stdout/stderr is a
// file rotated by lumberjack.
func (c *Config) sink(paths []string, fallback *os.File) zapcore.WriteSyncer {
	if len(paths) == 0 {
		return zapcore.Lock(fallback)
	}

	syncers := make([]zapcore.WriteSyncer, 0, len(paths))
	for _, p := range paths {
		switch p {
		case "stdout":
			syncers = append(syncers, zapcore.Lock(os.Stdout))
		case "stderr":
			syncers = append(syncers, zapcore.Lock(os.Stderr))
		default:
			syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
				Filename:   p,
				MaxSize:    c.Rotation.MaxSizeMB,
				MaxBackups: c.Rotation.MaxBackups,
				MaxAge:     c.Rotation.MaxAgeDays,
				Compress:   c.Rotation.Compress,
			}))
		}
	}
	return zapcore.NewMultiWriteSyncer(syncers...)
}

// NewFromConfig creates a new logger from configuration
func NewFromConfig(cfg *Config) (*ZapLogger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg.Build()
}
