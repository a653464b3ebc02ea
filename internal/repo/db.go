// Package repo implements the data persistence layer for book records,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), PostgreSQL and MySQL, plus schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-book-records/internal/config"
	"github.com/tbourn/go-book-records/internal/domain"
)

// gormConfig is shared by every dialect: UTC timestamps, silent SQL logging
// (request logs already carry latency).
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Open connects to the database selected by cfg.Driver, applies the schema
// and, when cfg.Trace is set, installs the OpenTelemetry GORM plugin.
//
// SQLite and MySQL are migrated with AutoMigrate; PostgreSQL uses the
// versioned SQL migrations embedded in this package.
func Open(cfg config.DBConfig) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite, "":
		db, err = OpenSQLite(cfg.Path)
	case config.DriverPostgres:
		db, err = gorm.Open(postgres.Open(cfg.DSN), gormConfig())
	case config.DriverMySQL:
		db, err = gorm.Open(mysql.Open(cfg.DSN), gormConfig())
	default:
		return nil, fmt.Errorf("repo: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Trace {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("repo: install tracing plugin: %w", err)
		}
	}

	if cfg.Driver == config.DriverPostgres {
		err = MigratePostgres(db)
	} else {
		err = AutoMigrate(db)
	}
	if err != nil {
		return nil, fmt.Errorf("repo: migrate: %w", err)
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the books and idempotency tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Book{},
		&domain.Idempotency{},
	); err != nil {
		return err
	}
	return binaryAuthorColumn(db)
}

// mysqlBinaryAuthorDDL makes author comparisons exact on MySQL, whose default
// collations ignore case and trailing spaces.
const mysqlBinaryAuthorDDL = "ALTER TABLE books MODIFY author varchar(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL"

// binaryAuthorColumn applies mysqlBinaryAuthorDDL on MySQL and is a no-op on
// other dialects, which already compare strings byte for byte.
func binaryAuthorColumn(db *gorm.DB) error {
	if db.Dialector.Name() != "mysql" {
		return nil
	}
	if err := db.Exec(mysqlBinaryAuthorDDL).Error; err != nil {
		return fmt.Errorf("binary author collation: %w", err)
	}
	return nil
}
