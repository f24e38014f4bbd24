// Package observability provides logger construction for the campaign tools.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/htbah/campaign-manager/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
// Output goes to stderr, or to cfg.File when set, so it never mixes with the
// operator console on stdout.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Named("htbah"), nil
}
