// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"

	"github.com/safar/storeledger/internal/config"
	"go.uber.org/zap"
)

// New returns a JSON production logger when the app runs in production and a
// console development logger otherwise, both at the configured level.
func New(cfg config.AppConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
	}

	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = level

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger.With(zap.String("env", cfg.Env)), nil
}
