// Package database provides storage management for the momentum-scout
// trading support system.
//
// This package includes:
//   - A per-account SQLite database opened through GORM in WAL mode
//   - A single-writer lock serializing every mutating operation in-process
//   - Schema initialization via AutoMigrate for all stores
//
// Key Concepts:
//   - One database file per account signature; independent accounts never
//     contend with each other
//   - Three logically separate stores share the file but never a transaction:
//     the expiring daily cache, the permanent momentum archive, and the
//     thesis/risk store
//   - Reads proceed without the write lock once a write has committed
//
// Data Models:
//
//	All record types (MomentumRecord, TradeThesis, RiskState, etc.) are
//	defined in the models_pkg package to avoid circular import dependencies.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "momentum-scout/database/models_pkg"
)

// Database holds the GORM connection to an account's storage file and the
// in-process write lock. SQLite does not arbitrate concurrent writers from
// multiple goroutines in the same process, so every mutating operation must
// go through Write.
type Database struct {
	db *gorm.DB
	mu sync.Mutex
}

// Connect opens (creating if needed) the storage file for an account.
func Connect(dataDir, accountID string) (*Database, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, fmt.Sprintf("momentum_%s.db", accountID))
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// WAL keeps readers unblocked while a write commits
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := db.Exec("PRAGMA busy_timeout=5000").Error; err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &Database{db: db}, nil
}

// DB returns the underlying GORM instance for read operations.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Write runs fn while holding the exclusive in-process write lock.
func (d *Database) Write(fn func(db *gorm.DB) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.db)
}

// InitSchema performs auto-migration for all stores
func (d *Database) InitSchema() error {
	err := d.db.AutoMigrate(
		// Daily cache store
		&models.MomentumRecord{},
		&models.MarketRegimeRecord{},
		&models.ScanMetadata{},
		// Permanent archive store
		&models.HistoryRecord{},
		&models.ArchivedRegime{},
		&models.ArchivedScanStats{},
		// Thesis store
		&models.TradeThesis{},
		&models.PriceCheckLog{},
		// Risk state store
		&models.RiskState{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ============================================================================
// Backward Compatibility Type Aliases
// ============================================================================

// These type aliases let callers import record types from the database
// package directly.

type MomentumRecord = models.MomentumRecord
type HistoryRecord = models.HistoryRecord
type MarketRegimeRecord = models.MarketRegimeRecord
type ScanMetadata = models.ScanMetadata
type ArchivedRegime = models.ArchivedRegime
type ArchivedScanStats = models.ArchivedScanStats
type TradeThesis = models.TradeThesis
type PriceCheckLog = models.PriceCheckLog
type RiskState = models.RiskState
