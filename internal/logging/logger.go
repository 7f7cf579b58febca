// Package logging builds the service's zap loggers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns the root logger. Development mode uses the colored console
// encoder; production emits JSON with ISO 8601 timestamps.
func New(development bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Tier returns a child logger for one fetch tier, named after the tier
// and carrying it as a structured field so tier lines group in queries.
func Tier(parent *zap.Logger, tier string) *zap.Logger {
	return parent.Named(tier).With(zap.String("tier", tier))
}
