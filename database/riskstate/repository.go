// Package riskstate persists the circuit breaker state so suspensions and
// daily blocks survive process restarts.
package riskstate

import (
	"errors"
	"time"

	"momentum-scout/database"
	models "momentum-scout/database/models_pkg"

	"gorm.io/gorm"
)

// Repository handles risk state persistence
type Repository struct {
	db *database.Database
}

// NewRepository creates a new risk state repository
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// LoadOrInit returns the persisted state for an account, creating a fresh
// baseline row from the current equity when none exists yet.
func (r *Repository) LoadOrInit(accountID string, equity float64, month, tradeDate string) (*models.RiskState, error) {
	var state models.RiskState
	err := r.db.DB().Where("account_id = ?", accountID).First(&state).Error
	if err == nil {
		return &state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &database.DBError{Operation: "riskstate.LoadOrInit", Err: err}
	}

	state = models.RiskState{
		AccountID:        accountID,
		CurrentMonth:     month,
		MonthStartEquity: equity,
		CurrentEquity:    equity,
		MonthHighEquity:  equity,
		MonthLowEquity:   equity,
		DailyDate:        tradeDate,
		DailyStartEquity: equity,
		UpdatedAt:        time.Now(),
	}
	err = r.db.Write(func(db *gorm.DB) error {
		return db.Create(&state).Error
	})
	if err != nil {
		return nil, &database.DBError{Operation: "riskstate.LoadOrInit", Err: err}
	}
	return &state, nil
}

// Save persists the current breaker state.
func (r *Repository) Save(state *models.RiskState) error {
	state.UpdatedAt = time.Now()
	err := r.db.Write(func(db *gorm.DB) error {
		return db.Save(state).Error
	})
	if err != nil {
		return &database.DBError{Operation: "riskstate.Save", Err: err}
	}
	return nil
}
