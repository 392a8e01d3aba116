package models

import (
	"fmt"
	"time"
)

// Mover directions as stored in daily_movers and momentum_history.
const (
	DirectionGainer = "gainer"
	DirectionLoser  = "loser"
)

// Thesis sides and statuses.
const (
	SideLong  = "long"
	SideShort = "short"

	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Market regime labels. The regime is scan metadata, not a trading signal.
const (
	RegimeBullish = "bullish"
	RegimeBearish = "bearish"
	RegimeNeutral = "neutral"
)

// MomentumRecord is one row of the daily cache: a single symbol's standing in
// the momentum scan for a scan date.
//
// Key Fields:
//   - ScanDate: trade date in YYYY-MM-DD form (part of the replace key)
//   - Direction: gainer or loser, by sign of the day's change
//   - Rank: position within its direction, 1 = strongest move
//   - ChangePct: (close - open) / open * 100 for the scan date
//   - MomentumScore: magnitude of ChangePct used for ranking
//   - Indicators: opaque JSON payload from the indicator layer
//
// Cache semantics: a re-scan of the same date replaces all rows for that date
// wholesale (delete then insert). (ScanDate, Symbol) is unique.
type MomentumRecord struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ScanDate      string    `gorm:"size:10;not null;uniqueIndex:idx_movers_date_symbol,priority:1;index" json:"scan_date"`
	Symbol        string    `gorm:"size:10;not null;uniqueIndex:idx_movers_date_symbol,priority:2;index" json:"symbol"`
	Direction     string    `gorm:"size:10;not null;index" json:"direction"` // gainer, loser
	Rank          int       `gorm:"not null" json:"rank"`
	Open          float64   `gorm:"type:decimal(15,4);not null" json:"open"`
	High          float64   `gorm:"type:decimal(15,4);not null" json:"high"`
	Low           float64   `gorm:"type:decimal(15,4);not null" json:"low"`
	Close         float64   `gorm:"type:decimal(15,4);not null" json:"close"`
	Volume        int64     `gorm:"not null" json:"volume"`
	ChangePct     float64   `gorm:"type:decimal(10,4);not null" json:"change_pct"`
	MomentumScore float64   `gorm:"type:decimal(10,4);not null" json:"momentum_score"`
	Indicators    string    `gorm:"type:text" json:"indicators,omitempty"` // opaque JSON payload
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for MomentumRecord
func (MomentumRecord) TableName() string {
	return "daily_movers"
}

// HistoryRecord mirrors MomentumRecord in the permanent archive.
//
// Archive semantics: re-archiving a date upserts per (ScanDate, Symbol) and
// bumps UpdatedAt; rows are never deleted by normal operation. The archive's
// lifecycle is independent of the daily cache's retention window.
type HistoryRecord struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ScanDate      string    `gorm:"size:10;not null;uniqueIndex:idx_history_date_symbol,priority:1;index" json:"scan_date"`
	Symbol        string    `gorm:"size:10;not null;uniqueIndex:idx_history_date_symbol,priority:2;index" json:"symbol"`
	Direction     string    `gorm:"size:10;not null;index" json:"direction"`
	Rank          int       `gorm:"not null" json:"rank"`
	Open          float64   `gorm:"type:decimal(15,4);not null" json:"open"`
	High          float64   `gorm:"type:decimal(15,4);not null" json:"high"`
	Low           float64   `gorm:"type:decimal(15,4);not null" json:"low"`
	Close         float64   `gorm:"type:decimal(15,4);not null" json:"close"`
	Volume        int64     `gorm:"not null" json:"volume"`
	ChangePct     float64   `gorm:"type:decimal(10,4);not null" json:"change_pct"`
	MomentumScore float64   `gorm:"type:decimal(10,4);not null" json:"momentum_score"`
	Indicators    string    `gorm:"type:text" json:"indicators,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for HistoryRecord
func (HistoryRecord) TableName() string {
	return "momentum_history"
}

// MarketRegimeRecord labels a scan date's broad market condition from
// reference index moves (SPY, QQQ). One row per scan date. This is the daily
// cache's copy; the archive keeps its own in ArchivedRegime so cache cleanup
// never touches research data.
type MarketRegimeRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ScanDate     string    `gorm:"size:10;not null;uniqueIndex" json:"scan_date"`
	Regime       string    `gorm:"size:10;not null" json:"regime"` // bullish, bearish, neutral
	SPYChangePct float64   `gorm:"type:decimal(10,4)" json:"spy_change_pct"`
	QQQChangePct float64   `gorm:"type:decimal(10,4)" json:"qqq_change_pct"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for MarketRegimeRecord
func (MarketRegimeRecord) TableName() string {
	return "market_regimes"
}

// ScanMetadata captures operational counters for one scan run.
type ScanMetadata struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ScanDate        string    `gorm:"size:10;not null;uniqueIndex" json:"scan_date"`
	TotalScanned    int       `gorm:"not null" json:"total_scanned"`
	HighVolumeCount int       `gorm:"not null" json:"high_volume_count"`
	GainersFound    int       `gorm:"not null" json:"gainers_found"`
	LosersFound     int       `gorm:"not null" json:"losers_found"`
	ScanDurationMS  int64     `json:"scan_duration_ms"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for ScanMetadata
func (ScanMetadata) TableName() string {
	return "scan_metadata"
}

// ArchivedRegime is the archive's permanent copy of a scan date's regime,
// upserted per scan date and never deleted by normal operation.
type ArchivedRegime struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ScanDate     string    `gorm:"size:10;not null;uniqueIndex" json:"scan_date"`
	Regime       string    `gorm:"size:10;not null" json:"regime"`
	SPYChangePct float64   `gorm:"type:decimal(10,4)" json:"spy_change_pct"`
	QQQChangePct float64   `gorm:"type:decimal(10,4)" json:"qqq_change_pct"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for ArchivedRegime
func (ArchivedRegime) TableName() string {
	return "regime_history"
}

// ArchivedScanStats is the archive's permanent copy of a scan run's counters,
// used for backtest weighting.
type ArchivedScanStats struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ScanDate        string    `gorm:"size:10;not null;uniqueIndex" json:"scan_date"`
	TotalScanned    int       `gorm:"not null" json:"total_scanned"`
	HighVolumeCount int       `gorm:"not null" json:"high_volume_count"`
	GainersFound    int       `gorm:"not null" json:"gainers_found"`
	LosersFound     int       `gorm:"not null" json:"losers_found"`
	ScanDurationMS  int64     `json:"scan_duration_ms"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for ArchivedScanStats
func (ArchivedScanStats) TableName() string {
	return "scan_stats_history"
}

// TradeThesis records the rationale and hard price levels for an open
// position, keyed by the broker order id.
//
// Lifecycle: OPEN -> CLOSED, a single terminal transition. A closed thesis is
// never reopened; exit fields are written exactly once at close.
type TradeThesis struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       string     `gorm:"size:64;not null;uniqueIndex" json:"order_id"`
	Symbol        string     `gorm:"size:10;not null;index" json:"symbol"`
	Side          string     `gorm:"size:5;not null" json:"side"` // long, short
	Quantity      float64    `gorm:"type:decimal(15,4);not null" json:"quantity"`
	EntryPrice    float64    `gorm:"type:decimal(15,4);not null" json:"entry_price"`
	Thesis        string     `gorm:"type:text" json:"thesis"`
	Support       float64    `gorm:"type:decimal(15,4);not null" json:"support"`
	Resistance    float64    `gorm:"type:decimal(15,4);not null" json:"resistance"`
	StopLoss      float64    `gorm:"type:decimal(15,4);not null" json:"stop_loss"`
	Target        float64    `gorm:"type:decimal(15,4);not null" json:"target"`
	Status        string     `gorm:"size:10;not null;index" json:"status"` // OPEN, CLOSED
	OpenedAt      time.Time  `gorm:"not null" json:"opened_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	ExitPrice     *float64   `gorm:"type:decimal(15,4)" json:"exit_price,omitempty"`
	ExitReason    *string    `gorm:"type:text" json:"exit_reason,omitempty"`
	ProfitLoss    *float64   `gorm:"type:decimal(15,4)" json:"profit_loss,omitempty"`
	ProfitLossPct *float64   `gorm:"type:decimal(10,4)" json:"profit_loss_pct,omitempty"`
}

// TableName specifies the table name for TradeThesis
func (TradeThesis) TableName() string {
	return "trade_theses"
}

// Validate checks the price-level ordering invariants for a thesis.
// Long: stop < entry < target. Short: target < entry < stop.
// Both sides: support < resistance.
func (t *TradeThesis) Validate() error {
	if t.OrderID == "" {
		return fmt.Errorf("thesis requires an order id")
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("thesis quantity must be positive, got %.4f", t.Quantity)
	}
	if t.Support >= t.Resistance {
		return fmt.Errorf("support %.4f must be below resistance %.4f", t.Support, t.Resistance)
	}
	switch t.Side {
	case SideLong:
		if !(t.StopLoss < t.EntryPrice && t.EntryPrice < t.Target) {
			return fmt.Errorf("long thesis requires stop %.4f < entry %.4f < target %.4f",
				t.StopLoss, t.EntryPrice, t.Target)
		}
	case SideShort:
		if !(t.Target < t.EntryPrice && t.EntryPrice < t.StopLoss) {
			return fmt.Errorf("short thesis requires target %.4f < entry %.4f < stop %.4f",
				t.Target, t.EntryPrice, t.StopLoss)
		}
	default:
		return fmt.Errorf("unknown thesis side %q", t.Side)
	}
	return nil
}

// PriceCheckLog is the append-only audit trail of thesis evaluations. Every
// evaluation writes a row, actionable or not; rows are never mutated.
type PriceCheckLog struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             string    `gorm:"size:64;not null;index" json:"order_id"`
	Symbol              string    `gorm:"size:10;not null;index" json:"symbol"`
	Price               float64   `gorm:"type:decimal(15,4);not null" json:"price"`
	DistanceToStopPct   float64   `gorm:"type:decimal(10,4)" json:"distance_to_stop_pct"`
	DistanceToTargetPct float64   `gorm:"type:decimal(10,4)" json:"distance_to_target_pct"`
	Recommendation      string    `gorm:"type:text;not null" json:"recommendation"`
	ShouldExit          bool      `gorm:"not null" json:"should_exit"`
	CheckedAt           time.Time `gorm:"not null;index" json:"checked_at"`
}

// TableName specifies the table name for PriceCheckLog
func (PriceCheckLog) TableName() string {
	return "price_checks"
}

// RiskState is the single circuit-breaker record for a trading account.
//
// Monthly fields reset exactly once per calendar month transition; the daily
// baseline resets only through an explicit session-start operation. Once
// Suspended is set it stays set for the remainder of the month, even if
// equity recovers.
type RiskState struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID         string    `gorm:"size:64;not null;uniqueIndex" json:"account_id"`
	CurrentMonth      string    `gorm:"size:7;not null" json:"current_month"` // YYYY-MM
	MonthStartEquity  float64   `gorm:"type:decimal(20,4);not null" json:"month_start_equity"`
	CurrentEquity     float64   `gorm:"type:decimal(20,4);not null" json:"current_equity"`
	MonthHighEquity   float64   `gorm:"type:decimal(20,4)" json:"month_high_equity"`
	MonthLowEquity    float64   `gorm:"type:decimal(20,4)" json:"month_low_equity"`
	Suspended         bool      `gorm:"not null;default:false" json:"suspended"`
	SuspensionReason  string    `gorm:"type:text" json:"suspension_reason,omitempty"`
	DailyDate         string    `gorm:"size:10" json:"daily_date"` // trade date of the daily baseline
	DailyStartEquity  float64   `gorm:"type:decimal(20,4)" json:"daily_start_equity"`
	DailyBlocked      bool      `gorm:"not null;default:false" json:"daily_blocked"`
	DailyBlockReason  string    `gorm:"type:text" json:"daily_block_reason,omitempty"`
	TradesThisMonth   int       `gorm:"not null;default:0" json:"trades_this_month"`
	Wins              int       `gorm:"not null;default:0" json:"wins"`
	Losses            int       `gorm:"not null;default:0" json:"losses"`
	ConsecutiveLosses int       `gorm:"not null;default:0" json:"consecutive_losses"`
	LargestWin        float64   `gorm:"type:decimal(20,4)" json:"largest_win"`
	LargestLoss       float64   `gorm:"type:decimal(20,4)" json:"largest_loss"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for RiskState
func (RiskState) TableName() string {
	return "risk_states"
}
