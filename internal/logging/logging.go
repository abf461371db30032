// Package logging builds the zap loggers used across gtdb.
//
// Two streams are distinguished by logger name:
//   - ops:  actionable warnings, errors and lifecycle events (info and above)
//   - diag: per-frame and per-partition diagnostics (debug)
//
// Loggers are passed explicitly; nothing here keeps global state.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures a logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Encoding is "console" or "json". Empty means console.
	Encoding string
}

// New builds a logger writing to stderr.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	encoding := opts.Encoding
	if encoding == "" {
		encoding = "console"
	}
	if encoding != "console" && encoding != "json" {
		return nil, fmt.Errorf("invalid log encoding %q (want console or json)", encoding)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = encoding
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return cfg.Build()
}

// Ops returns the operations stream of l.
func Ops(l *zap.Logger) *zap.Logger {
	return OrNop(l).Named("ops")
}

// Diag returns the diagnostics stream of l.
func Diag(l *zap.Logger) *zap.Logger {
	return OrNop(l).Named("diag")
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
