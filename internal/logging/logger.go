// Package logging builds the zap-backed logr.Logger every component receives.
package logging

import (
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

// New creates a logr.Logger backed by Zap. A level of "debug" or "trace"
// selects the development config with debug output; anything else selects
// the production JSON config.
// Returns the logger and a sync function the caller should defer.
func New(level string) (logr.Logger, func(), error) {
	zapLog, err := newZapLogger(level)
	if err != nil {
		return logr.Logger{}, nil, err
	}
	sync := func() { _ = zapLog.Sync() }
	return zapr.NewLogger(zapLog), sync, nil
}

// Development reports whether level selects the development config.
func Development(level string) bool {
	level = strings.ToLower(strings.TrimSpace(level))
	return level == "debug" || level == "trace"
}

func newZapLogger(level string) (*zap.Logger, error) {
	if Development(level) {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return cfg.Build()
	}
	return zap.NewProduction()
}
