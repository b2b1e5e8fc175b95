// Package logging builds ravel's single *zap.Logger. Every component
// that needs one takes it as a constructor argument and derives a named
// sub-logger; nothing in ravel uses a package-level global.
//
// Grounded on cmd/nerd/main.go's logger setup: zap.NewProductionConfig
// with the level bumped to debug under --verbose.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-configured logger, switched to debug level
// when debug is true.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: failed to build logger: %w", err)
	}
	return logger, nil
}

// NopIfNil returns l unchanged, or a no-op logger if l is nil. Every
// component in ravel that accepts a *zap.Logger calls this so callers
// (and tests) may pass nil freely.
func NopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
