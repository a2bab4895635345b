package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"call-filter/domain"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured database, retrying once a second until ctx is done.
func Connect(ctx context.Context, cfg *Config) (db *gorm.DB, err error) {
	dialector, err := dialect(cfg)
	if err != nil {
		return nil, err
	}
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	for {
		db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			if cfg.DatabaseDriver == "sqlite" {
				db.Exec("PRAGMA journal_mode=WAL")
				db.Exec("PRAGMA busy_timeout = 5000")
			}
			return db, nil
		}
		log.Warn().Err(err).Str("driver", cfg.DatabaseDriver).Msg("could not connect to DB")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context is done, giving up on db connection: %w", err)
		case <-time.After(1 * time.Second):
		}
	}
}

func dialect(cfg *Config) (gorm.Dialector, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		return gormpostgres.Open(cfg.DatabaseDSN), nil
	case "sqlite":
		if cfg.DatabaseDSN != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DatabaseDSN), 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		return sqlite.Open(cfg.DatabaseDSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DatabaseDriver)
	}
}

func CreateTables(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Call{},
		&domain.Profile{},
		&domain.Notification{})

	if err != nil {
		return err
	}

	return nil
}
