// Package dailycache implements the expiring per-date snapshot store for
// momentum scan results. Writes replace a date wholesale; reads default to
// the most recent scan; today's entry goes stale at session close.
package dailycache

import (
	"fmt"
	"time"

	"momentum-scout/database"
	models "momentum-scout/database/models_pkg"
	"momentum-scout/market"

	"gorm.io/gorm"
)

// Repository handles daily cache operations
type Repository struct {
	db  *database.Database
	cal *market.Calendar
}

// NewRepository creates a new daily cache repository
func NewRepository(db *database.Database, cal *market.Calendar) *Repository {
	return &Repository{db: db, cal: cal}
}

// Write stores a scan's movers for a date, replacing any prior rows for that
// date in a single transaction (last write wins, no duplicate accumulation).
// The regime and metadata rows for the date are replaced alongside.
func (r *Repository) Write(date string, gainers, losers []models.MomentumRecord,
	regime *models.MarketRegimeRecord, meta *models.ScanMetadata) error {

	return r.db.Write(func(db *gorm.DB) error {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("scan_date = ?", date).Delete(&models.MomentumRecord{}).Error; err != nil {
				return err
			}
			if err := tx.Where("scan_date = ?", date).Delete(&models.MarketRegimeRecord{}).Error; err != nil {
				return err
			}
			if err := tx.Where("scan_date = ?", date).Delete(&models.ScanMetadata{}).Error; err != nil {
				return err
			}

			for i := range gainers {
				gainers[i].ID = 0
				gainers[i].ScanDate = date
				gainers[i].Direction = models.DirectionGainer
			}
			for i := range losers {
				losers[i].ID = 0
				losers[i].ScanDate = date
				losers[i].Direction = models.DirectionLoser
			}
			if len(gainers) > 0 {
				if err := tx.Create(&gainers).Error; err != nil {
					return err
				}
			}
			if len(losers) > 0 {
				if err := tx.Create(&losers).Error; err != nil {
					return err
				}
			}

			if regime != nil {
				regime.ID = 0
				regime.ScanDate = date
				if err := tx.Create(regime).Error; err != nil {
					return err
				}
			}
			if meta != nil {
				meta.ID = 0
				meta.ScanDate = date
				if err := tx.Create(meta).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return &database.DBError{Operation: "dailycache.Write", Err: err}
		}
		return nil
	})
}

// Read retrieves cached movers. An empty date means the most recently written
// scan date; an empty direction means both directions. Results are ordered by
// direction then rank.
func (r *Repository) Read(date, direction string, limit int) ([]models.MomentumRecord, error) {
	if date == "" {
		latest, err := r.LatestScanDate()
		if err != nil {
			return nil, err
		}
		if latest == "" {
			return nil, nil
		}
		date = latest
	}

	var records []models.MomentumRecord
	query := r.db.DB().Where("scan_date = ?", date).Order("direction, rank")
	if direction != "" {
		query = query.Where("direction = ?", direction)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("dailycache.Read: %w", err)
	}
	return records, nil
}

// LatestScanDate returns the most recent cached scan date, or "" when the
// cache is empty.
func (r *Repository) LatestScanDate() (string, error) {
	var date *string
	err := r.db.DB().Model(&models.MomentumRecord{}).
		Select("MAX(scan_date)").Scan(&date).Error
	if err != nil {
		return "", fmt.Errorf("dailycache.LatestScanDate: %w", err)
	}
	if date == nil {
		return "", nil
	}
	return *date, nil
}

// Regime returns the cached market regime for a date, or nil if absent.
func (r *Repository) Regime(date string) (*models.MarketRegimeRecord, error) {
	var regime models.MarketRegimeRecord
	err := r.db.DB().Where("scan_date = ?", date).First(&regime).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dailycache.Regime: %w", err)
	}
	return &regime, nil
}

// Metadata returns the cached scan counters for a date, or nil if absent.
func (r *Repository) Metadata(date string) (*models.ScanMetadata, error) {
	var meta models.ScanMetadata
	err := r.db.DB().Where("scan_date = ?", date).First(&meta).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dailycache.Metadata: %w", err)
	}
	return &meta, nil
}

// IsValid reports whether a cached date is still usable at time now. The
// current trade date goes stale once the session close has passed, forcing a
// re-scan before reuse; any other cached date stays valid until cleanup.
func (r *Repository) IsValid(date string, now time.Time) (bool, error) {
	var count int64
	err := r.db.DB().Model(&models.MomentumRecord{}).
		Where("scan_date = ?", date).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("dailycache.IsValid: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	if date == r.cal.TradeDate(now) && r.cal.SessionClosed(now) {
		return false, nil
	}
	return true, nil
}

// Cleanup removes cache rows older than daysToKeep distinct calendar days,
// bounding storage growth. The historical archive is untouched. Returns the
// number of mover rows removed.
func (r *Repository) Cleanup(daysToKeep int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep).Format("2006-01-02")

	var removed int64
	err := r.db.Write(func(db *gorm.DB) error {
		res := db.Where("scan_date <= ?", cutoff).Delete(&models.MomentumRecord{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		if err := db.Where("scan_date <= ?", cutoff).Delete(&models.MarketRegimeRecord{}).Error; err != nil {
			return err
		}
		return db.Where("scan_date <= ?", cutoff).Delete(&models.ScanMetadata{}).Error
	})
	if err != nil {
		return 0, &database.DBError{Operation: "dailycache.Cleanup", Err: err}
	}
	return removed, nil
}

// DistinctDates returns the number of distinct scan dates currently cached.
func (r *Repository) DistinctDates() (int64, error) {
	var count int64
	err := r.db.DB().Model(&models.MomentumRecord{}).
		Distinct("scan_date").Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("dailycache.DistinctDates: %w", err)
	}
	return count, nil
}
