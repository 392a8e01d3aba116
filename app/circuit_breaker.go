package app

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"momentum-scout/config"
	models "momentum-scout/database/models_pkg"
	"momentum-scout/database/riskstate"
	"momentum-scout/database/types"
	"momentum-scout/helpers"
	"momentum-scout/market"
)

// SizingResult carries the position size plus the arithmetic behind it.
// Error is set for degenerate inputs; Shares is then zero.
type SizingResult struct {
	Shares       int     `json:"shares"`
	RiskAmount   float64 `json:"risk_amount"`
	RiskPerShare float64 `json:"risk_per_share"`
	Error        string  `json:"error,omitempty"`
}

// CircuitBreaker enforces the monthly drawdown suspension, the daily loss
// block and the portfolio risk cap. State is an explicit object loaded from
// storage at session start and persisted on every change. The session loop
// mutates it while the HTTP API reads snapshots, so every access goes
// through the mutex.
type CircuitBreaker struct {
	repo *riskstate.Repository
	cal  *market.Calendar
	cfg  config.RiskConfig

	mu    sync.Mutex
	state *models.RiskState
}

// NewCircuitBreaker loads or initializes the breaker state for an account
func NewCircuitBreaker(repo *riskstate.Repository, cal *market.Calendar, cfg config.RiskConfig, accountID string, equity float64, now time.Time) (*CircuitBreaker, error) {
	month := now.Format("2006-01")
	state, err := repo.LoadOrInit(accountID, equity, month, cal.TradeDate(now))
	if err != nil {
		return nil, err
	}

	cb := &CircuitBreaker{repo: repo, cal: cal, cfg: cfg, state: state}
	if err := cb.RolloverIfNewMonth(equity, now); err != nil {
		return nil, err
	}
	return cb, nil
}

// RolloverIfNewMonth resets the monthly baseline when the calendar month has
// changed: new month-start equity, cleared suspension, zeroed counters. This
// is the only way a suspension is ever lifted. The daily baseline is reset
// alongside; a daily block from a prior month must not outlive the month it
// was earned in, and intraday loss must never be measured against a baseline
// from an earlier date.
func (cb *CircuitBreaker) RolloverIfNewMonth(currentEquity float64, now time.Time) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	month := now.Format("2006-01")
	if cb.state.CurrentMonth == month {
		return nil
	}

	log.Printf("📅 Month rollover %s -> %s: new baseline %s",
		cb.state.CurrentMonth, month, helpers.FormatUSD(currentEquity))

	cb.state.CurrentMonth = month
	cb.state.MonthStartEquity = currentEquity
	cb.state.CurrentEquity = currentEquity
	cb.state.MonthHighEquity = currentEquity
	cb.state.MonthLowEquity = currentEquity
	cb.state.Suspended = false
	cb.state.SuspensionReason = ""
	cb.state.TradesThisMonth = 0
	cb.state.Wins = 0
	cb.state.Losses = 0
	cb.state.ConsecutiveLosses = 0
	cb.state.LargestWin = 0
	cb.state.LargestLoss = 0

	cb.state.DailyDate = cb.cal.TradeDate(now)
	cb.state.DailyStartEquity = currentEquity
	cb.state.DailyBlocked = false
	cb.state.DailyBlockReason = ""

	return cb.repo.Save(cb.state)
}

// ResetDailyBaseline sets a fresh intraday baseline and clears the daily
// block. Invoked once per session start; nothing else clears the block.
func (cb *CircuitBreaker) ResetDailyBaseline(currentEquity float64, now time.Time) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state.DailyDate = cb.cal.TradeDate(now)
	cb.state.DailyStartEquity = currentEquity
	cb.state.DailyBlocked = false
	cb.state.DailyBlockReason = ""
	log.Printf("🌅 Daily baseline reset for %s: %s", cb.state.DailyDate, helpers.FormatUSD(currentEquity))
	return cb.repo.Save(cb.state)
}

// UpdateEquity records fresh equity and answers whether trading is allowed.
// A monthly drawdown at or past the limit suspends for the rest of the
// month with no mid-month recovery; an intraday loss at or past the daily
// limit blocks until the next baseline reset.
func (cb *CircuitBreaker) UpdateEquity(currentEquity float64) (bool, string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state.CurrentEquity = currentEquity
	if currentEquity > cb.state.MonthHighEquity {
		cb.state.MonthHighEquity = currentEquity
	}
	if currentEquity < cb.state.MonthLowEquity {
		cb.state.MonthLowEquity = currentEquity
	}

	if !cb.state.Suspended && cb.state.MonthStartEquity > 0 {
		drawdown := (cb.state.MonthStartEquity - currentEquity) / cb.state.MonthStartEquity
		if drawdown >= cb.cfg.MonthlyLossLimit {
			cb.state.Suspended = true
			cb.state.SuspensionReason = fmt.Sprintf(
				"monthly drawdown %.2f%% reached limit %.2f%% (start %s, current %s)",
				drawdown*100, cb.cfg.MonthlyLossLimit*100,
				helpers.FormatUSD(cb.state.MonthStartEquity), helpers.FormatUSD(currentEquity))
			log.Printf("🛑 Trading suspended: %s", cb.state.SuspensionReason)
		}
	}

	if !cb.state.DailyBlocked && cb.state.DailyStartEquity > 0 {
		dailyLoss := (cb.state.DailyStartEquity - currentEquity) / cb.state.DailyStartEquity
		if dailyLoss >= cb.cfg.DailyLossLimit {
			cb.state.DailyBlocked = true
			cb.state.DailyBlockReason = fmt.Sprintf(
				"daily loss %.2f%% reached limit %.2f%% (baseline %s, current %s)",
				dailyLoss*100, cb.cfg.DailyLossLimit*100,
				helpers.FormatUSD(cb.state.DailyStartEquity), helpers.FormatUSD(currentEquity))
			log.Printf("🛑 Trading blocked for the day: %s", cb.state.DailyBlockReason)
		}
	}

	if err := cb.repo.Save(cb.state); err != nil {
		log.Printf("⚠️ Failed to persist risk state: %v", err)
	}

	if cb.state.Suspended {
		return false, cb.state.SuspensionReason
	}
	if cb.state.DailyBlocked {
		return false, cb.state.DailyBlockReason
	}
	return true, "ok"
}

// SizePosition computes the share count for a prospective trade:
// floor((equity * riskPct) / risk per share). Entry equal to stop is a
// degenerate input that returns zero shares with an error description.
func (cb *CircuitBreaker) SizePosition(entry, stop, equity, riskPct float64) SizingResult {
	riskPerShare := math.Abs(entry - stop)
	riskAmount := equity * riskPct

	if riskPerShare == 0 {
		return SizingResult{
			RiskAmount: riskAmount,
			Error:      fmt.Sprintf("entry %.2f equals stop %.2f, zero risk per share", entry, stop),
		}
	}

	return SizingResult{
		Shares:       int(math.Floor(riskAmount / riskPerShare)),
		RiskAmount:   riskAmount,
		RiskPerShare: riskPerShare,
	}
}

// CanOpenPosition checks the new position's risk against the portfolio cap.
// The refusal message carries both risk figures so the caller can see why.
func (cb *CircuitBreaker) CanOpenPosition(newRisk, existingOpenRisk float64) (bool, string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	maxRisk := cb.state.CurrentEquity * cb.cfg.MaxPortfolioRisk
	total := newRisk + existingOpenRisk
	if total > maxRisk {
		return false, fmt.Sprintf(
			"portfolio risk %s (new %s + open %s) exceeds cap %s",
			helpers.FormatUSD(total), helpers.FormatUSD(newRisk),
			helpers.FormatUSD(existingOpenRisk), helpers.FormatUSD(maxRisk))
	}
	return true, "ok"
}

// RecordTradeOutcome updates the reporting counters for a closed trade.
// Purely bookkeeping; suspension decisions come from UpdateEquity only.
func (cb *CircuitBreaker) RecordTradeOutcome(pnl float64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state.TradesThisMonth++
	if pnl >= 0 {
		cb.state.Wins++
		cb.state.ConsecutiveLosses = 0
		if pnl > cb.state.LargestWin {
			cb.state.LargestWin = pnl
		}
	} else {
		cb.state.Losses++
		cb.state.ConsecutiveLosses++
		if pnl < cb.state.LargestLoss {
			cb.state.LargestLoss = pnl
		}
	}

	if err := cb.repo.Save(cb.state); err != nil {
		log.Printf("⚠️ Failed to persist risk state: %v", err)
	}
}

// DailyBaselineDate returns the trade date the current daily baseline was
// set on. The session loop compares it to today to decide when to reset.
func (cb *CircuitBreaker) DailyBaselineDate() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state.DailyDate
}

// Status returns a structured snapshot of the breaker state
func (cb *CircuitBreaker) Status() types.RiskStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	drawdown := 0.0
	if cb.state.MonthStartEquity > 0 {
		drawdown = (cb.state.MonthStartEquity - cb.state.CurrentEquity) / cb.state.MonthStartEquity * 100
	}

	return types.RiskStatus{
		AccountID:         cb.state.AccountID,
		Month:             cb.state.CurrentMonth,
		MonthStartEquity:  cb.state.MonthStartEquity,
		CurrentEquity:     cb.state.CurrentEquity,
		MonthHighEquity:   cb.state.MonthHighEquity,
		MonthLowEquity:    cb.state.MonthLowEquity,
		DrawdownPct:       drawdown,
		Suspended:         cb.state.Suspended,
		SuspensionReason:  cb.state.SuspensionReason,
		DailyBlocked:      cb.state.DailyBlocked,
		DailyBlockReason:  cb.state.DailyBlockReason,
		TradesThisMonth:   cb.state.TradesThisMonth,
		Wins:              cb.state.Wins,
		Losses:            cb.state.Losses,
		ConsecutiveLosses: cb.state.ConsecutiveLosses,
		LargestWin:        cb.state.LargestWin,
		LargestLoss:       cb.state.LargestLoss,
	}
}
