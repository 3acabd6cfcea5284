// Package db opens the configured database and migrates the schema.
package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tenantadmin/tenantadmin/internal/config"
	"github.com/tenantadmin/tenantadmin/internal/db/dsn"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
	"github.com/tenantadmin/tenantadmin/internal/logger/adapter/stdlogger"
)

// MemoryPath opens a private in-memory sqlite database.
const MemoryPath = ":memory:"

const slowQueryThreshold = 500 * time.Millisecond

// ErrConfigNil is returned when Open is called without a config.
var ErrConfigNil = errors.New("config is nil")

// Open connects to the configured database.
func Open(cfg *config.Config) (*gorm.DB, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	var dialector gorm.Dialector

	switch cfg.DB.Driver {
	case "mysql":
		dialector = gormmysql.Open(dsn.Create(cfg))
	case "postgres":
		dialector = postgres.Open(dsn.Create(cfg))
	case "sqlite", "":
		dialector = sqlite.Open(dsn.Create(cfg))
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedDBDriver, cfg.DB.Driver)
	}

	level := gormlogger.Warn
	if cfg.DB.LogSQL {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(stdlogger.NewComponent("gorm"), gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// every connection to :memory: is a separate database
	if cfg.DB.Path == MemoryPath {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql pool: %w", err)
		}

		sqlDB.SetMaxOpenConns(1)
	}

	log.Debug().Str("driver", dialector.Name()).Msg("database connected")

	return db, nil
}

// Migrate creates or updates all tables and indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// OpenMemory opens and migrates an in-memory sqlite database.
func OpenMemory() (*gorm.DB, error) {
	db, err := Open(&config.Config{DB: config.DB{Driver: "sqlite", Path: MemoryPath}})
	if err != nil {
		return nil, err
	}

	return db, Migrate(db)
}

// IsUniqueViolation reports whether err was caused by a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()

	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}
