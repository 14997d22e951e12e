// Package logging builds the zap loggers used by the binaries.
//
// Loggers are injected and named per component, e.g. lggr.Named("crud").
// Tests should use zaptest.NewLogger(t).Sugar() or zap.NewNop().Sugar().
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production sugared logger at the given level ("debug",
// "info", "warn", "error"). format "console" switches to the development
// encoder; anything else logs JSON.
func New(level, format string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l.Sugar(), nil
}
