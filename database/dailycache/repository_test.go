package dailycache

import (
	"fmt"
	"testing"
	"time"

	"momentum-scout/config"
	"momentum-scout/database"
	models "momentum-scout/database/models_pkg"
	"momentum-scout/market"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Connect(t.TempDir(), "test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cal := market.NewCalendar(config.MarketConfig{
		Timezone:      "America/New_York",
		OpenHour:      9,
		OpenMinute:    30,
		CloseHour:     16,
		CloseMinute:   0,
		EODExitHour:   15,
		EODExitMinute: 45,
	})
	return NewRepository(db, cal)
}

func mover(symbol string, rank int, change float64) models.MomentumRecord {
	return models.MomentumRecord{
		Symbol:        symbol,
		Rank:          rank,
		Open:          100,
		High:          105,
		Low:           98,
		Close:         100 + change,
		Volume:        2000000,
		ChangePct:     change,
		MomentumScore: change,
		Indicators:    "{}",
	}
}

func TestWriteThenReadReturnsRankedUnion(t *testing.T) {
	repo := testRepo(t)
	date := "2025-03-10"

	gainers := []models.MomentumRecord{mover("UPA", 1, 8), mover("UPB", 2, 5)}
	losers := []models.MomentumRecord{mover("DNA", 1, -6)}

	regime := &models.MarketRegimeRecord{Regime: models.RegimeBullish, SPYChangePct: 0.5, QQQChangePct: 0.9}
	meta := &models.ScanMetadata{TotalScanned: 100, HighVolumeCount: 40, GainersFound: 2, LosersFound: 1}

	if err := repo.Write(date, gainers, losers, regime, meta); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := repo.Read(date, "", 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}

	seen := make(map[string]bool)
	ranks := make(map[string][]int)
	for _, rec := range records {
		if seen[rec.Symbol] {
			t.Errorf("duplicate symbol %s", rec.Symbol)
		}
		seen[rec.Symbol] = true
		ranks[rec.Direction] = append(ranks[rec.Direction], rec.Rank)
	}
	for direction, rs := range ranks {
		for i, rank := range rs {
			if rank != i+1 {
				t.Errorf("%s ranks = %v, want ascending from 1", direction, rs)
				break
			}
		}
	}

	gotRegime, err := repo.Regime(date)
	if err != nil || gotRegime == nil {
		t.Fatalf("regime = %v, %v", gotRegime, err)
	}
	if gotRegime.Regime != models.RegimeBullish {
		t.Errorf("regime = %s, want bullish", gotRegime.Regime)
	}

	gotMeta, err := repo.Metadata(date)
	if err != nil || gotMeta == nil {
		t.Fatalf("metadata = %v, %v", gotMeta, err)
	}
	if gotMeta.TotalScanned != 100 {
		t.Errorf("total scanned = %d, want 100", gotMeta.TotalScanned)
	}
}

func TestRewriteReplacesDate(t *testing.T) {
	repo := testRepo(t)
	date := "2025-03-10"

	first := []models.MomentumRecord{mover("OLD1", 1, 4), mover("OLD2", 2, 3)}
	if err := repo.Write(date, first, nil, nil, nil); err != nil {
		t.Fatalf("first write: %v", err)
	}

	second := []models.MomentumRecord{mover("NEW1", 1, 7)}
	if err := repo.Write(date, second, nil, nil, nil); err != nil {
		t.Fatalf("second write: %v", err)
	}

	records, err := repo.Read(date, "", 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 1 || records[0].Symbol != "NEW1" {
		t.Fatalf("records = %v, want only NEW1 (last write wins)", records)
	}
}

func TestReadDefaultsToLatestDate(t *testing.T) {
	repo := testRepo(t)

	if err := repo.Write("2025-03-07", []models.MomentumRecord{mover("OLD", 1, 2)}, nil, nil, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := repo.Write("2025-03-10", []models.MomentumRecord{mover("NEW", 1, 3)}, nil, nil, nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := repo.Read("", "", 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 1 || records[0].ScanDate != "2025-03-10" {
		t.Fatalf("records = %v, want latest date only", records)
	}
}

func TestReadFilterByDirection(t *testing.T) {
	repo := testRepo(t)
	date := "2025-03-10"

	gainers := []models.MomentumRecord{mover("UP", 1, 5)}
	losers := []models.MomentumRecord{mover("DN", 1, -5)}
	if err := repo.Write(date, gainers, losers, nil, nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := repo.Read(date, models.DirectionLoser, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 1 || records[0].Symbol != "DN" {
		t.Fatalf("records = %v, want only the loser", records)
	}
}

func TestIsValid(t *testing.T) {
	repo := testRepo(t)

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	sessionOpen := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)
	afterClose := time.Date(2025, 3, 10, 16, 30, 0, 0, loc)
	nextDay := time.Date(2025, 3, 11, 12, 0, 0, 0, loc)

	// Absent date is never valid
	valid, err := repo.IsValid("2025-03-10", sessionOpen)
	if err != nil {
		t.Fatalf("isValid: %v", err)
	}
	if valid {
		t.Fatal("empty cache must be invalid")
	}

	if err := repo.Write("2025-03-10", []models.MomentumRecord{mover("AAPL", 1, 4)}, nil, nil, nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"today during session", sessionOpen, true},
		{"today after close", afterClose, false},
		{"past date stays valid", nextDay, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := repo.IsValid("2025-03-10", tt.now)
			if err != nil {
				t.Fatalf("isValid: %v", err)
			}
			if valid != tt.expected {
				t.Errorf("valid = %v, want %v", valid, tt.expected)
			}
		})
	}
}

func TestCleanupBoundsDistinctDates(t *testing.T) {
	repo := testRepo(t)

	// 40 distinct dates counting back from today
	today := time.Now()
	for i := 0; i < 40; i++ {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		rec := mover(fmt.Sprintf("SYM%d", i), 1, 3)
		if err := repo.Write(date, []models.MomentumRecord{rec}, nil, nil, nil); err != nil {
			t.Fatalf("write %s: %v", date, err)
		}
	}

	removed, err := repo.Cleanup(30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed == 0 {
		t.Fatal("cleanup should remove rows older than 30 days")
	}

	count, err := repo.DistinctDates()
	if err != nil {
		t.Fatalf("distinct dates: %v", err)
	}
	if count > 30 {
		t.Errorf("distinct dates after cleanup = %d, want <= 30", count)
	}
}
