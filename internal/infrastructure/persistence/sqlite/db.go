// Package sqlite is the embedded ledger store: gorm over the pure-Go
// glebarez driver. It backs single-node deployments and the test suite.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Open connects to the database file at path (creating its directory),
// applies connection pragmas and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	if path != MemoryPath && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// One connection: an in-memory database exists per connection, and
	// sqlite serializes writers anyway.
	sqlDB.SetMaxOpenConns(1)

	if err := configure(db, path == MemoryPath); err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func configure(db *gorm.DB, memory bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	if !memory {
		pragmas = append(pragmas,
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
		)
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

// Migrate creates or updates all tables plus the partial unique index that
// backs the one-active-goal-per-kind rule.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&memberModel{},
		&goalModel{},
		&exerciseLogModel{},
		&dietLogModel{},
		&weeklyStatusModel{},
		&monthlyTrophyModel{},
		&jobRunModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_goals_one_active
		ON goals (member_id, kind) WHERE active`).Error; err != nil {
		return fmt.Errorf("failed to create active goal index: %w", err)
	}
	return nil
}

// Ping checks the underlying connection.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
