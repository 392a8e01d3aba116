// Package types holds plain result structs shared across the database
// sub-repositories and the API layer.
package types

// DateRangeInfo summarizes the span of the historical archive.
type DateRangeInfo struct {
	EarliestDate string `json:"earliest_date"`
	LatestDate   string `json:"latest_date"`
	Days         int    `json:"days"`
	TotalRecords int64  `json:"total_records"`
}

// ArchiveStats aggregates archived scans over a date range.
type ArchiveStats struct {
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	Days           int     `json:"days"`
	AvgDailyMove   float64 `json:"avg_daily_move"`   // mean |change_pct| across all records
	BestDailyMove  float64 `json:"best_daily_move"`  // largest positive change_pct
	WorstDailyMove float64 `json:"worst_daily_move"` // largest negative change_pct
	AvgGainers     float64 `json:"avg_gainers"`      // mean gainer candidates per day
	AvgLosers      float64 `json:"avg_losers"`       // mean loser candidates per day
}

// SymbolAppearances counts how often and in which direction a symbol has
// shown up in archived scans.
type SymbolAppearances struct {
	Symbol        string  `json:"symbol"`
	Total         int64   `json:"total"`
	AsGainer      int64   `json:"as_gainer"`
	AsLoser       int64   `json:"as_loser"`
	AvgChangePct  float64 `json:"avg_change_pct"`
	BestChangePct float64 `json:"best_change_pct"`
}

// RiskStatus is the structured circuit-breaker snapshot exposed to the
// decision layer and the HTTP API.
type RiskStatus struct {
	AccountID         string  `json:"account_id"`
	Month             string  `json:"month"`
	MonthStartEquity  float64 `json:"month_start_equity"`
	CurrentEquity     float64 `json:"current_equity"`
	MonthHighEquity   float64 `json:"month_high_equity"`
	MonthLowEquity    float64 `json:"month_low_equity"`
	DrawdownPct       float64 `json:"drawdown_pct"`
	Suspended         bool    `json:"suspended"`
	SuspensionReason  string  `json:"suspension_reason,omitempty"`
	DailyBlocked      bool    `json:"daily_blocked"`
	DailyBlockReason  string  `json:"daily_block_reason,omitempty"`
	TradesThisMonth   int     `json:"trades_this_month"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	LargestWin        float64 `json:"largest_win"`
	LargestLoss       float64 `json:"largest_loss"`
}
