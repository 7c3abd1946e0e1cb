// Package store is the GORM/MySQL-backed repository layer for every
// persisted entity. It replaces the teacher's JSON-file position store
// with a real relational store, shaped after the sibling example repo's
// MySQLRecorder: one gorm.DB connection pool shared by every repository
// type, AutoMigrate on startup, explicit TableName()s on the model side.
package store

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"polymarket-ingestor/internal/config"
	"polymarket-ingestor/internal/models"
)

// DB wraps the shared *gorm.DB connection pool. Every repository type
// embeds it rather than opening its own connection, so the pool (and its
// AutoMigrate pass) is established exactly once per process.
type DB struct {
	*gorm.DB
}

// Open connects to MySQL, tunes the underlying connection pool, and runs
// AutoMigrate for every model.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	gdb, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := gdb.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return &DB{DB: gdb}, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
