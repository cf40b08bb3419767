package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. format is "json" or "console"; level is any
// zap level name ("debug", "info", "warn", "error").
func New(level, format string) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if strings.TrimSpace(level) != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console", "text":
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = lvl
	cfg.DisableStacktrace = true

	return cfg.Build()
}

// Must is New for binaries that cannot start without a logger.
func Must(level, format string) *zap.Logger {
	logger, err := New(level, format)
	if err != nil {
		panic(err)
	}
	return logger
}
