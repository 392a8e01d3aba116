// Package theses implements the trade thesis store keyed by broker order id,
// plus the append-only price-check audit log.
package theses

import (
	"errors"
	"fmt"
	"time"

	"momentum-scout/database"
	models "momentum-scout/database/models_pkg"

	"gorm.io/gorm"
)

// Repository handles thesis and price-check log operations
type Repository struct {
	db *database.Database
}

// NewRepository creates a new thesis repository
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// Open records a new thesis. Returns false without error when a thesis for
// the order id already exists (expected condition, not a fault). The level
// ordering invariants are validated before anything is written.
func (r *Repository) Open(thesis *models.TradeThesis) (bool, error) {
	if err := thesis.Validate(); err != nil {
		return false, err
	}

	opened := false
	err := r.db.Write(func(db *gorm.DB) error {
		var existing models.TradeThesis
		err := db.Where("order_id = ?", thesis.OrderID).First(&existing).Error
		if err == nil {
			return nil // duplicate order id, leave opened=false
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		thesis.Status = models.StatusOpen
		if thesis.OpenedAt.IsZero() {
			thesis.OpenedAt = time.Now()
		}
		if err := db.Create(thesis).Error; err != nil {
			return err
		}
		opened = true
		return nil
	})
	if err != nil {
		return false, &database.DBError{Operation: "theses.Open", Err: err}
	}
	return opened, nil
}

// Close performs the single terminal OPEN -> CLOSED transition. Returns false
// without error when no open thesis exists for the order id; a closed thesis
// is never reopened or re-closed.
func (r *Repository) Close(orderID string, exitPrice float64, exitReason string, pnl, pnlPct float64) (bool, error) {
	closed := false
	err := r.db.Write(func(db *gorm.DB) error {
		var thesis models.TradeThesis
		err := db.Where("order_id = ? AND status = ?", orderID, models.StatusOpen).First(&thesis).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		now := time.Now()
		thesis.Status = models.StatusClosed
		thesis.ClosedAt = &now
		thesis.ExitPrice = &exitPrice
		thesis.ExitReason = &exitReason
		thesis.ProfitLoss = &pnl
		thesis.ProfitLossPct = &pnlPct

		if err := db.Save(&thesis).Error; err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		return false, &database.DBError{Operation: "theses.Close", Err: err}
	}
	return closed, nil
}

// Get returns the thesis for an order id, or nil when none exists.
func (r *Repository) Get(orderID string) (*models.TradeThesis, error) {
	var thesis models.TradeThesis
	err := r.db.DB().Where("order_id = ?", orderID).First(&thesis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("theses.Get: %w", err)
	}
	return &thesis, nil
}

// OpenBySymbol returns every open thesis for a symbol, oldest first.
func (r *Repository) OpenBySymbol(symbol string) ([]models.TradeThesis, error) {
	var theses []models.TradeThesis
	err := r.db.DB().
		Where("symbol = ? AND status = ?", symbol, models.StatusOpen).
		Order("opened_at").
		Find(&theses).Error
	if err != nil {
		return nil, fmt.Errorf("theses.OpenBySymbol: %w", err)
	}
	return theses, nil
}

// OpenAll returns every open thesis across symbols, oldest first.
func (r *Repository) OpenAll() ([]models.TradeThesis, error) {
	var theses []models.TradeThesis
	err := r.db.DB().
		Where("status = ?", models.StatusOpen).
		Order("opened_at").
		Find(&theses).Error
	if err != nil {
		return nil, fmt.Errorf("theses.OpenAll: %w", err)
	}
	return theses, nil
}

// LogPriceCheck appends one evaluation to the audit trail. Called on every
// evaluation regardless of outcome; rows are never mutated afterward.
func (r *Repository) LogPriceCheck(entry *models.PriceCheckLog) error {
	if entry.CheckedAt.IsZero() {
		entry.CheckedAt = time.Now()
	}
	err := r.db.Write(func(db *gorm.DB) error {
		return db.Create(entry).Error
	})
	if err != nil {
		return &database.DBError{Operation: "theses.LogPriceCheck", Err: err}
	}
	return nil
}

// PriceChecks returns the newest audit entries for an order id.
func (r *Repository) PriceChecks(orderID string, limit int) ([]models.PriceCheckLog, error) {
	var checks []models.PriceCheckLog
	query := r.db.DB().Where("order_id = ?", orderID).Order("checked_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&checks).Error; err != nil {
		return nil, fmt.Errorf("theses.PriceChecks: %w", err)
	}
	return checks, nil
}
