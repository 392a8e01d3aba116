// Package history implements the permanent momentum archive: every scan ever
// run, upserted per (scan date, symbol) and never deleted by normal
// operation. Its lifecycle is independent of the daily cache's retention
// window; it exists for backtesting and pattern research.
package history

import (
	"fmt"

	"momentum-scout/database"
	models "momentum-scout/database/models_pkg"
	"momentum-scout/database/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles historical archive operations
type Repository struct {
	db *database.Database
}

// NewRepository creates a new archive repository
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// momentum columns refreshed when a (scan_date, symbol) row already exists
var recordUpdateColumns = []string{
	"direction", "rank", "open", "high", "low", "close", "volume",
	"change_pct", "momentum_score", "indicators", "updated_at",
}

// Archive upserts a scan's movers into the permanent log. Re-archiving an
// already-archived date updates the existing rows and bumps updated_at
// instead of creating duplicates.
func (r *Repository) Archive(date string, records []models.MomentumRecord,
	regime *models.MarketRegimeRecord, meta *models.ScanMetadata) error {

	return r.db.Write(func(db *gorm.DB) error {
		err := db.Transaction(func(tx *gorm.DB) error {
			for _, rec := range records {
				row := models.HistoryRecord{
					ScanDate:      date,
					Symbol:        rec.Symbol,
					Direction:     rec.Direction,
					Rank:          rec.Rank,
					Open:          rec.Open,
					High:          rec.High,
					Low:           rec.Low,
					Close:         rec.Close,
					Volume:        rec.Volume,
					ChangePct:     rec.ChangePct,
					MomentumScore: rec.MomentumScore,
					Indicators:    rec.Indicators,
				}
				err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "scan_date"}, {Name: "symbol"}},
					DoUpdates: clause.AssignmentColumns(recordUpdateColumns),
				}).Create(&row).Error
				if err != nil {
					return err
				}
			}

			if regime != nil {
				row := models.ArchivedRegime{
					ScanDate:     date,
					Regime:       regime.Regime,
					SPYChangePct: regime.SPYChangePct,
					QQQChangePct: regime.QQQChangePct,
				}
				err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "scan_date"}},
					DoUpdates: clause.AssignmentColumns([]string{"regime", "spy_change_pct", "qqq_change_pct", "updated_at"}),
				}).Create(&row).Error
				if err != nil {
					return err
				}
			}

			if meta != nil {
				row := models.ArchivedScanStats{
					ScanDate:        date,
					TotalScanned:    meta.TotalScanned,
					HighVolumeCount: meta.HighVolumeCount,
					GainersFound:    meta.GainersFound,
					LosersFound:     meta.LosersFound,
					ScanDurationMS:  meta.ScanDurationMS,
				}
				err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "scan_date"}},
					DoUpdates: clause.AssignmentColumns([]string{"total_scanned", "high_volume_count", "gainers_found", "losers_found", "scan_duration_ms", "updated_at"}),
				}).Create(&row).Error
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return &database.DBError{Operation: "history.Archive", Err: err}
		}
		return nil
	})
}

// Query retrieves archived records. Symbol narrows to one symbol's time
// series; an empty endDate means "through the latest archived date".
func (r *Repository) Query(symbol, startDate, endDate string) ([]models.HistoryRecord, error) {
	var records []models.HistoryRecord
	query := r.db.DB().Where("scan_date >= ?", startDate).Order("scan_date, direction, rank")
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}
	if endDate != "" {
		query = query.Where("scan_date <= ?", endDate)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("history.Query: %w", err)
	}
	return records, nil
}

// DateRange summarizes what the archive currently spans.
func (r *Repository) DateRange() (*types.DateRangeInfo, error) {
	var info types.DateRangeInfo
	err := r.db.DB().Raw(`
		SELECT
			COALESCE(MIN(scan_date), '') AS earliest_date,
			COALESCE(MAX(scan_date), '') AS latest_date,
			COUNT(DISTINCT scan_date) AS days,
			COUNT(*) AS total_records
		FROM momentum_history
	`).Scan(&info).Error
	if err != nil {
		return nil, fmt.Errorf("history.DateRange: %w", err)
	}
	return &info, nil
}

// Statistics aggregates archived movers over a date range: average and
// extreme daily moves plus average candidate counts per day.
func (r *Repository) Statistics(startDate, endDate string) (*types.ArchiveStats, error) {
	stats := &types.ArchiveStats{StartDate: startDate, EndDate: endDate}

	err := r.db.DB().Raw(`
		SELECT
			COUNT(DISTINCT scan_date) AS days,
			COALESCE(AVG(ABS(change_pct)), 0) AS avg_daily_move,
			COALESCE(MAX(change_pct), 0) AS best_daily_move,
			COALESCE(MIN(change_pct), 0) AS worst_daily_move
		FROM momentum_history
		WHERE scan_date >= ? AND scan_date <= ?
	`, startDate, endDate).Scan(stats).Error
	if err != nil {
		return nil, fmt.Errorf("history.Statistics: %w", err)
	}

	// candidate counts averaged over the days that actually have rows
	var counts struct {
		AvgGainers float64
		AvgLosers  float64
	}
	err = r.db.DB().Raw(`
		SELECT
			COALESCE(AVG(gainers), 0) AS avg_gainers,
			COALESCE(AVG(losers), 0) AS avg_losers
		FROM (
			SELECT
				scan_date,
				SUM(CASE WHEN direction = 'gainer' THEN 1 ELSE 0 END) AS gainers,
				SUM(CASE WHEN direction = 'loser' THEN 1 ELSE 0 END) AS losers
			FROM momentum_history
			WHERE scan_date >= ? AND scan_date <= ?
			GROUP BY scan_date
		)
	`, startDate, endDate).Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("history.Statistics: %w", err)
	}
	stats.AvgGainers = counts.AvgGainers
	stats.AvgLosers = counts.AvgLosers

	return stats, nil
}

// SymbolAppearances reports how often and in which direction a symbol has
// appeared across all archived scans.
func (r *Repository) SymbolAppearances(symbol string) (*types.SymbolAppearances, error) {
	result := &types.SymbolAppearances{Symbol: symbol}
	err := r.db.DB().Raw(`
		SELECT
			COUNT(*) AS total,
			SUM(CASE WHEN direction = 'gainer' THEN 1 ELSE 0 END) AS as_gainer,
			SUM(CASE WHEN direction = 'loser' THEN 1 ELSE 0 END) AS as_loser,
			COALESCE(AVG(change_pct), 0) AS avg_change_pct,
			COALESCE(MAX(change_pct), 0) AS best_change_pct
		FROM momentum_history
		WHERE symbol = ?
	`, symbol).Scan(result).Error
	if err != nil {
		return nil, fmt.Errorf("history.SymbolAppearances: %w", err)
	}
	return result, nil
}

// RecordCount returns the number of archived rows for a scan date.
func (r *Repository) RecordCount(date string) (int64, error) {
	var count int64
	err := r.db.DB().Model(&models.HistoryRecord{}).
		Where("scan_date = ?", date).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("history.RecordCount: %w", err)
	}
	return count, nil
}
