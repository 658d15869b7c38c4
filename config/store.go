package config

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"journal-api/repository"
)

// OpenStore returns the repository for DB_DRIVER. The memory driver keeps
// everything in process and is meant for local runs and demos.
func OpenStore(cfg *Config, log *zap.Logger) (repository.Store, *gorm.DB, error) {
	if strings.EqualFold(cfg.DBDriver, "memory") {
		log.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), nil, nil
	}
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			return nil, nil, errors.Wrap(err, "migrate")
		}
	}
	log.Info("database connected", zap.String("driver", cfg.DBDriver), zap.String("host", cfg.DBHost))
	return repository.NewGormStore(db), db, nil
}

// CloseDB closes the pool behind db, if any.
func CloseDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
