// Package database persists arrangement snapshots in Postgres.
package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Conceptual-Machines/magda-sequencer/internal/logger"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// ErrNoDatabaseURL is returned by Connect when no DSN is configured
var ErrNoDatabaseURL = errors.New("database url not set")

// Connect opens a Postgres connection pool
func Connect(databaseURL string) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, ErrNoDatabaseURL
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	logger.Info("Database connected", logger.Fields{"max_open_conns": maxOpenConns})
	return db, nil
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&ProjectRecord{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
