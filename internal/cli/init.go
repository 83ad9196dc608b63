// Package cli provides common initialization shared by the finbook commands
// (finbook, finbook-worker, savings-worker).
package cli

import (
	"os"

	"finbook/internal/config"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// Init loads and validates configuration and sets up the default logger for
// the given component. Exits the process on invalid configuration.
func Init(component string) (*config.Config, *log.Logger) {
	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: component,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenRepository opens the SQLite repository, running migrations. Exits the
// process on failure; commands cannot run without their database.
func OpenRepository(cfg *config.Config, logger *log.Logger) *storage.Repository {
	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("open database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	return repo
}
