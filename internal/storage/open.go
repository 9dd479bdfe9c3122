package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/splitlog/internal/config"
)

// Backend is a Store that owns a connection which must be closed.
type Backend interface {
	Store
	Close() error
}

// Open connects the backend selected by cfg.Driver. For PostgreSQL the
// migrations in migrationsPath are applied before connecting.
func Open(ctx context.Context, cfg config.DatabaseConfig, migrationsPath string, log *slog.Logger) (Backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := OpenLocal(cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Info("database opened", "driver", cfg.Driver, "path", cfg.Path)
		return db, nil

	case config.DriverPostgres, "":
		dsn := cfg.DSN()
		version, err := RunMigrations(dsn, migrationsPath)
		if err != nil {
			return nil, err
		}
		log.Info("migrations applied", "version", version)

		db, err := New(ctx, dsn, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		log.Info("database connected", "driver", config.DriverPostgres, "host", cfg.Host, "name", cfg.Name)
		return db, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
