package app

import (
	"context"
	"testing"
	"time"

	models "momentum-scout/database/models_pkg"
	"momentum-scout/database/theses"
	"momentum-scout/marketdata"
)

// stubGateway serves fixed latest prices for tracker tests
type stubGateway struct {
	prices map[string]float64
}

func (s *stubGateway) TradableAssets(ctx context.Context) ([]marketdata.Asset, error) {
	return nil, nil
}

func (s *stubGateway) DailyBars(ctx context.Context, symbols []string, start, end string) (map[string][]marketdata.Bar, error) {
	return nil, nil
}

func (s *stubGateway) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	if price, ok := s.prices[symbol]; ok {
		return price, nil
	}
	return 0, marketdata.ErrNoPrice
}

func newTestTracker(t *testing.T, prices map[string]float64) (*ThesisTracker, *theses.Repository) {
	t.Helper()
	repo := theses.NewRepository(testDatabase(t))
	tracker := NewThesisTracker(repo, &stubGateway{prices: prices}, testCalendar())
	return tracker, repo
}

func longThesis(orderID string) *models.TradeThesis {
	return &models.TradeThesis{
		OrderID:    orderID,
		Symbol:     "AAPL",
		Side:       models.SideLong,
		Quantity:   100,
		EntryPrice: 100,
		Thesis:     "momentum continuation",
		Support:    97,
		Resistance: 108,
		StopLoss:   98,
		Target:     106,
	}
}

func shortThesis(orderID string) *models.TradeThesis {
	return &models.TradeThesis{
		OrderID:    orderID,
		Symbol:     "TSLA",
		Side:       models.SideShort,
		Quantity:   50,
		EntryPrice: 100,
		Thesis:     "fading the gap",
		Support:    92,
		Resistance: 103,
		StopLoss:   104,
		Target:     94,
	}
}

func TestOpenThesisDuplicateOrderID(t *testing.T) {
	tracker, _ := newTestTracker(t, nil)

	opened, err := tracker.OpenThesis(longThesis("ord-1"))
	if err != nil || !opened {
		t.Fatalf("first open = %v, %v; want true, nil", opened, err)
	}

	opened, err = tracker.OpenThesis(longThesis("ord-1"))
	if err != nil {
		t.Fatalf("second open errored: %v", err)
	}
	if opened {
		t.Fatal("second open with same order id must return false")
	}
}

func TestOpenThesisRejectsInvalidLevels(t *testing.T) {
	tracker, _ := newTestTracker(t, nil)

	bad := longThesis("ord-bad")
	bad.StopLoss = 103 // long requires stop < entry
	if _, err := tracker.OpenThesis(bad); err == nil {
		t.Fatal("expected validation error for stop above entry on a long")
	}

	badShort := shortThesis("ord-bad-2")
	badShort.Target = 105 // short requires target < entry
	if _, err := tracker.OpenThesis(badShort); err == nil {
		t.Fatal("expected validation error for target above entry on a short")
	}
}

func TestCloseWithoutOpenReturnsFalse(t *testing.T) {
	tracker, _ := newTestTracker(t, nil)

	closed, err := tracker.CloseThesis("never-opened", 100, RecommendationEOD)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed {
		t.Fatal("close without prior open must return false")
	}
}

func TestCloseIsTerminal(t *testing.T) {
	tracker, _ := newTestTracker(t, nil)

	if _, err := tracker.OpenThesis(longThesis("ord-2")); err != nil {
		t.Fatalf("open: %v", err)
	}
	closed, err := tracker.CloseThesis("ord-2", 106, RecommendationTarget)
	if err != nil || !closed {
		t.Fatalf("close = %v, %v; want true, nil", closed, err)
	}

	// Second close is a no-op
	closed, err = tracker.CloseThesis("ord-2", 107, RecommendationTarget)
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if closed {
		t.Fatal("a closed thesis must never close again")
	}
}

func TestEvaluateLongThesis(t *testing.T) {
	tests := []struct {
		name           string
		price          float64
		recommendation string
		shouldExit     bool
	}{
		{"stop loss hit", 97, RecommendationStopLoss, true},
		{"at the stop", 98, RecommendationStopLoss, true},
		{"target reached", 107, RecommendationTarget, true},
		{"in between holds", 102, RecommendationHold, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, _ := newTestTracker(t, nil)
			if _, err := tracker.OpenThesis(longThesis("ord-l")); err != nil {
				t.Fatalf("open: %v", err)
			}

			evals, err := tracker.Evaluate("AAPL", tt.price, midday(t))
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if len(evals) != 1 {
				t.Fatalf("evaluations = %d, want 1", len(evals))
			}
			if evals[0].Recommendation != tt.recommendation {
				t.Errorf("recommendation = %s, want %s", evals[0].Recommendation, tt.recommendation)
			}
			if evals[0].ShouldExit != tt.shouldExit {
				t.Errorf("shouldExit = %v, want %v", evals[0].ShouldExit, tt.shouldExit)
			}
		})
	}
}

func TestEvaluateShortThesis(t *testing.T) {
	tests := []struct {
		name           string
		price          float64
		recommendation string
	}{
		{"stop loss hit", 105, RecommendationStopLoss},
		{"target reached", 93, RecommendationTarget},
		{"in between holds", 98, RecommendationHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, _ := newTestTracker(t, nil)
			if _, err := tracker.OpenThesis(shortThesis("ord-s")); err != nil {
				t.Fatalf("open: %v", err)
			}

			evals, err := tracker.Evaluate("TSLA", tt.price, midday(t))
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if len(evals) != 1 {
				t.Fatalf("evaluations = %d, want 1", len(evals))
			}
			if evals[0].Recommendation != tt.recommendation {
				t.Errorf("recommendation = %s, want %s", evals[0].Recommendation, tt.recommendation)
			}
		})
	}
}

func TestEODWindowOverridesPrice(t *testing.T) {
	tracker, _ := newTestTracker(t, nil)
	if _, err := tracker.OpenThesis(longThesis("ord-eod")); err != nil {
		t.Fatalf("open: %v", err)
	}

	loc, _ := time.LoadLocation("America/New_York")
	eod := time.Date(2025, 3, 10, 15, 50, 0, 0, loc)

	// Price would be a comfortable HOLD at midday
	evals, err := tracker.Evaluate("AAPL", 102, eod)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if evals[0].Recommendation != RecommendationEOD || !evals[0].ShouldExit {
		t.Errorf("recommendation = %s shouldExit=%v, want END_OF_DAY exit",
			evals[0].Recommendation, evals[0].ShouldExit)
	}
}

func TestEvaluationAppendsPriceCheck(t *testing.T) {
	tracker, repo := newTestTracker(t, nil)
	if _, err := tracker.OpenThesis(longThesis("ord-log")); err != nil {
		t.Fatalf("open: %v", err)
	}

	// Three evaluations including a plain HOLD must yield three audit rows
	for _, price := range []float64{102, 103, 97} {
		if _, err := tracker.Evaluate("AAPL", price, midday(t)); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}

	checks, err := repo.PriceChecks("ord-log", 0)
	if err != nil {
		t.Fatalf("price checks: %v", err)
	}
	if len(checks) != 3 {
		t.Fatalf("price check rows = %d, want 3", len(checks))
	}
}

func TestEvaluateOpenPositionsMissingPrice(t *testing.T) {
	tracker, _ := newTestTracker(t, map[string]float64{"AAPL": 102})

	if _, err := tracker.OpenThesis(longThesis("ord-a")); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := tracker.OpenThesis(shortThesis("ord-b")); err != nil {
		t.Fatalf("open: %v", err)
	}

	evals, err := tracker.EvaluateOpenPositions(context.Background(), midday(t))
	if err != nil {
		t.Fatalf("evaluate open positions: %v", err)
	}
	if len(evals) != 2 {
		t.Fatalf("evaluations = %d, want 2", len(evals))
	}

	byOrder := make(map[string]Evaluation)
	for _, e := range evals {
		byOrder[e.OrderID] = e
	}

	if byOrder["ord-a"].Recommendation != RecommendationHold {
		t.Errorf("priced thesis = %s, want HOLD", byOrder["ord-a"].Recommendation)
	}
	if byOrder["ord-b"].Err == "" {
		t.Error("unpriced thesis must carry an error entry")
	}
}
