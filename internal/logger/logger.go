// Package logger configures the process-wide zap logger. Production
// environments get a JSON encoder; anything else gets a console encoder
// with human-readable timestamps.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger for the given environment. The logger writes
// to stdout; level defaults to info in prod and debug otherwise.
func New(env string) *zap.Logger {
	var cfg zap.Config
	if env == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.OutputPaths = []string{"stdout"}
	l, err := cfg.Build()
	if err != nil {
		// zap.Config.Build only fails on invalid sink paths; stdout is valid.
		return zap.NewNop()
	}
	return l
}
