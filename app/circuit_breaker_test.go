package app

import (
	"sync"
	"testing"
	"time"

	"momentum-scout/config"
	"momentum-scout/database"
	"momentum-scout/database/riskstate"
	"momentum-scout/market"
)

func testDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.Connect(t.TempDir(), "test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testCalendar() *market.Calendar {
	return market.NewCalendar(config.MarketConfig{
		Timezone:      "America/New_York",
		OpenHour:      9,
		OpenMinute:    30,
		CloseHour:     16,
		CloseMinute:   0,
		EODExitHour:   15,
		EODExitMinute: 45,
	})
}

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		MonthlyLossLimit: 0.06,
		DailyLossLimit:   0.03,
		RiskPerTrade:     0.02,
		MaxPortfolioRisk: 0.06,
	}
}

func midday(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	return time.Date(2025, 3, 10, 12, 0, 0, 0, loc)
}

func newTestBreaker(t *testing.T, equity float64) *CircuitBreaker {
	t.Helper()
	repo := riskstate.NewRepository(testDatabase(t))
	cb, err := NewCircuitBreaker(repo, testCalendar(), testRiskConfig(), "test", equity, midday(t))
	if err != nil {
		t.Fatalf("new breaker: %v", err)
	}
	return cb
}

func TestMonthlySuspensionNoRecovery(t *testing.T) {
	cb := newTestBreaker(t, 100000)

	// 6.001% drawdown crosses the 6% limit
	canTrade, reason := cb.UpdateEquity(93999)
	if canTrade {
		t.Fatal("expected suspension at 6.001% drawdown")
	}
	if reason == "" {
		t.Fatal("suspension reason must be populated")
	}

	// Equity rebound inside the same month does not lift the suspension
	canTrade, _ = cb.UpdateEquity(96000)
	if canTrade {
		t.Fatal("suspension must persist after mid-month recovery")
	}
	if !cb.Status().Suspended {
		t.Fatal("status should report suspended")
	}
}

func TestMonthRolloverClearsSuspension(t *testing.T) {
	cb := newTestBreaker(t, 100000)

	if canTrade, _ := cb.UpdateEquity(93000); canTrade {
		t.Fatal("expected suspension")
	}

	nextMonth := midday(t).AddDate(0, 1, 0)
	if err := cb.RolloverIfNewMonth(96000, nextMonth); err != nil {
		t.Fatalf("rollover: %v", err)
	}

	status := cb.Status()
	if status.Suspended {
		t.Fatal("rollover must clear suspension")
	}
	if status.MonthStartEquity != 96000 {
		t.Errorf("month start equity = %v, want 96000", status.MonthStartEquity)
	}
	if canTrade, _ := cb.UpdateEquity(95000); !canTrade {
		t.Fatal("trading should resume after rollover")
	}
}

func TestMonthRolloverClearsDailyBlock(t *testing.T) {
	cb := newTestBreaker(t, 100000)

	if err := cb.ResetDailyBaseline(100000, midday(t)); err != nil {
		t.Fatalf("reset baseline: %v", err)
	}

	// 7% drop trips both the monthly and the daily limit
	if canTrade, _ := cb.UpdateEquity(93000); canTrade {
		t.Fatal("expected suspension and daily block")
	}
	if status := cb.Status(); !status.DailyBlocked {
		t.Fatal("expected daily block alongside the suspension")
	}

	nextMonth := midday(t).AddDate(0, 1, 0)
	if err := cb.RolloverIfNewMonth(95000, nextMonth); err != nil {
		t.Fatalf("rollover: %v", err)
	}

	// A daily block from a prior month must not outlive the rollover, and
	// the baseline must move to the rollover's equity and trade date.
	status := cb.Status()
	if status.DailyBlocked {
		t.Fatal("rollover must clear a daily block from the prior month")
	}
	if got := cb.DailyBaselineDate(); got != "2025-04-10" {
		t.Errorf("daily baseline date = %s, want 2025-04-10", got)
	}
	if canTrade, reason := cb.UpdateEquity(94000); !canTrade {
		t.Fatalf("trading should resume after rollover, got refusal: %s", reason)
	}
}

func TestDailyBlockUntilBaselineReset(t *testing.T) {
	cb := newTestBreaker(t, 100000)

	if err := cb.ResetDailyBaseline(100000, midday(t)); err != nil {
		t.Fatalf("reset baseline: %v", err)
	}

	// 3% intraday loss hits the daily limit
	canTrade, reason := cb.UpdateEquity(97000)
	if canTrade {
		t.Fatal("expected daily block at 3% intraday loss")
	}
	if reason == "" {
		t.Fatal("daily block reason must be populated")
	}

	// Still blocked after partial recovery
	if canTrade, _ := cb.UpdateEquity(98500); canTrade {
		t.Fatal("daily block persists until explicit baseline reset")
	}

	// Explicit reset clears the block
	if err := cb.ResetDailyBaseline(98500, midday(t).AddDate(0, 0, 1)); err != nil {
		t.Fatalf("reset baseline: %v", err)
	}
	if canTrade, _ := cb.UpdateEquity(98400); !canTrade {
		t.Fatal("trading should resume after baseline reset")
	}
}

func TestSizePosition(t *testing.T) {
	cb := newTestBreaker(t, 100000)

	tests := []struct {
		name      string
		entry     float64
		stop      float64
		equity    float64
		riskPct   float64
		shares    int
		wantError bool
	}{
		{"long two dollar stop", 100, 98, 100000, 0.02, 1000, false},
		{"short two dollar stop", 100, 102, 100000, 0.02, 1000, false},
		{"fractional floors down", 100, 97, 100000, 0.02, 666, false},
		{"degenerate stop equals entry", 100, 100, 100000, 0.02, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cb.SizePosition(tt.entry, tt.stop, tt.equity, tt.riskPct)
			if result.Shares != tt.shares {
				t.Errorf("shares = %d, want %d", result.Shares, tt.shares)
			}
			if tt.wantError && result.Error == "" {
				t.Error("expected non-empty error field")
			}
			if !tt.wantError && result.Error != "" {
				t.Errorf("unexpected error: %s", result.Error)
			}
		})
	}
}

func TestCanOpenPosition(t *testing.T) {
	cb := newTestBreaker(t, 100000)
	cb.UpdateEquity(100000)

	// Cap is 6% of 100k = 6000
	allowed, _ := cb.CanOpenPosition(2000, 3000)
	if !allowed {
		t.Fatal("5000 total risk should fit under 6000 cap")
	}

	allowed, reason := cb.CanOpenPosition(2000, 4500)
	if allowed {
		t.Fatal("6500 total risk should exceed 6000 cap")
	}
	if reason == "" {
		t.Fatal("refusal must carry a reason with both risk figures")
	}
}

func TestStatusSafeDuringEquityUpdates(t *testing.T) {
	cb := newTestBreaker(t, 100000)

	// The session loop updates equity while the HTTP API reads status
	// snapshots; both must be safe to run concurrently.
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			cb.UpdateEquity(100000 - float64(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			status := cb.Status()
			if status.Suspended && status.SuspensionReason == "" {
				t.Error("suspended status must carry a reason")
			}
		}
	}()

	wg.Wait()
}

func TestRecordTradeOutcome(t *testing.T) {
	cb := newTestBreaker(t, 100000)

	cb.RecordTradeOutcome(-500)
	cb.RecordTradeOutcome(-800)
	status := cb.Status()
	if status.ConsecutiveLosses != 2 {
		t.Errorf("consecutive losses = %d, want 2", status.ConsecutiveLosses)
	}
	if status.LargestLoss != -800 {
		t.Errorf("largest loss = %v, want -800", status.LargestLoss)
	}

	// A win resets the streak
	cb.RecordTradeOutcome(1200)
	status = cb.Status()
	if status.ConsecutiveLosses != 0 {
		t.Errorf("consecutive losses = %d, want 0 after win", status.ConsecutiveLosses)
	}
	if status.LargestWin != 1200 {
		t.Errorf("largest win = %v, want 1200", status.LargestWin)
	}
	if status.TradesThisMonth != 3 || status.Wins != 1 || status.Losses != 2 {
		t.Errorf("counters = %d/%d/%d, want 3/1/2",
			status.TradesThisMonth, status.Wins, status.Losses)
	}
}
