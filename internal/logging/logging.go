// Package logging builds the zap logger shared by every component.
package logging

import (
	"go.uber.org/zap"
)

// Config holds logging configuration
type Config struct {
	Level       string            `mapstructure:"level"`
	Format      string            `mapstructure:"format"` // "json" or "console"
	OutputPath  string            `mapstructure:"output_path"`
	Fields      map[string]string `mapstructure:"fields"`
	Development bool              `mapstructure:"development"`
}

// New creates a logger from cfg. An unparsable level falls back to info.
func New(cfg Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	if cfg.OutputPath != "" {
		zapConfig.OutputPaths = []string{cfg.OutputPath}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	fields := make([]zap.Field, 0, len(cfg.Fields))
	for k, v := range cfg.Fields {
		fields = append(fields, zap.String(k, v))
	}
	return logger.With(fields...), nil
}

// Must is New for process start-up: on error it falls back to a production
// logger rather than running without one.
func Must(cfg Config) *zap.Logger {
	logger, err := New(cfg)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("invalid logging config, using defaults", zap.Error(err))
	}
	return logger
}
