package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/fintx/internal/seed"
	"github.com/desertthunder/fintx/internal/shared"
	"github.com/desertthunder/fintx/internal/storage"
	"github.com/urfave/cli/v3"
)

// SetupDatabase writes a config file when none exists, then initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using current settings", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenStore(ctx, r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}

// Seed writes the demo collections into local storage.
func (r *Runner) Seed(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if r.config.Storage.Driver == shared.DriverMemory {
		r.logger.Warn("memory storage does not persist, seeded data is discarded on exit")
	}

	result, err := seed.Seed(store, cmd.Bool("force"))
	if err != nil {
		return err
	}

	if len(result.Written) > 0 {
		r.writePlain("✓ Seeded: %s\n", strings.Join(result.Written, ", "))
	}
	if len(result.Skipped) > 0 {
		r.writePlain("Skipped (already present, use --force to overwrite): %s\n", strings.Join(result.Skipped, ", "))
	}
	return nil
}

// openStore opens the storage backend named in the config. The returned func releases it.
func (r *Runner) openStore(ctx context.Context) (*storage.Adapter, func() error, error) {
	switch driver := r.config.Storage.Driver; driver {
	case "", shared.DriverSQLite:
		db, err := shared.OpenStore(ctx, r.config.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
		}
		r.logger.Debug("opened sqlite storage", "path", r.config.Database.Path)
		return storage.NewAdapter(storage.NewSQLiteBackend(db), r.logger), db.Close, nil
	case shared.DriverMemory:
		return storage.NewAdapter(storage.NewMemoryBackend(), r.logger), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage driver %q", shared.ErrInvalidConfig, driver)
	}
}
