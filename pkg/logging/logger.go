// Package logging builds the engine's zap logger and provides helpers
// for keeping target-database credentials out of log output.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New constructs a logger for the given environment. "local" and "dev"
// get the human-readable development config; everything else gets
// production JSON output.
func New(env string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	switch env {
	case "local", "dev", "development":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
