// Package logging builds the zap loggers used across invoicegen.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Service is attached to every entry.
	Service string
	// Stderr sends output to stderr, keeping stdout free for protocol traffic.
	Stderr bool
}

// New returns a JSON logger, or a console logger at debug level.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	var cfg zap.Config
	if level == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	if opts.Stderr {
		cfg.OutputPaths = []string{"stderr"}
	}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if opts.Service != "" {
		cfg.InitialFields = map[string]interface{}{
			"service": opts.Service,
		}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("config build: %w", err)
	}
	return logger, nil
}
