// Package scanner builds the tradeable universe and ranks one day's movers
// into gainers and losers, with market regime detection from the reference
// indices. Scanning produces a result structure only; caching and archival
// are separate explicit steps owned by the caller.
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"momentum-scout/config"
	models "momentum-scout/database/models_pkg"
	"momentum-scout/marketdata"
)

// Result is the outcome of one scan cycle
type Result struct {
	Date     string
	Gainers  []models.MomentumRecord
	Losers   []models.MomentumRecord
	Regime   *models.MarketRegimeRecord
	Metadata *models.ScanMetadata
}

// Scanner filters and ranks the daily universe
type Scanner struct {
	gateway marketdata.Gateway
	cfg     config.ScanConfig
}

// NewScanner creates a new scanner
func NewScanner(gateway marketdata.Gateway, cfg config.ScanConfig) *Scanner {
	return &Scanner{gateway: gateway, cfg: cfg}
}

// Scan ranks the universe for one trade date. Individual symbol failures are
// skipped and counted, never fatal; a day with no qualifying movers returns
// empty lists.
func (s *Scanner) Scan(ctx context.Context, date string) (*Result, error) {
	started := time.Now()

	universe := s.buildUniverse(ctx)
	log.Printf("🔍 Scanning %d symbols for %s", len(universe), date)

	bars := s.fetchBars(ctx, universe, date)

	var candidates []models.MomentumRecord
	highVolume := 0
	for _, symbol := range universe {
		bar, ok := barForDate(bars[symbol], date)
		if !ok {
			continue
		}
		if bar.Close < s.cfg.MinPrice {
			continue
		}
		if bar.Volume < s.cfg.MinVolume {
			continue
		}
		highVolume++

		change := changePct(bar)
		if change == 0 {
			continue // unchanged symbols belong to neither side
		}

		candidates = append(candidates, models.MomentumRecord{
			ScanDate:      date,
			Symbol:        symbol,
			Open:          bar.Open,
			High:          bar.High,
			Low:           bar.Low,
			Close:         bar.Close,
			Volume:        bar.Volume,
			ChangePct:     change,
			MomentumScore: math.Abs(change),
			Indicators:    indicatorPayload(bar, change),
		})
	}

	gainers, losers := partitionAndRank(candidates, s.cfg.MaxResults)

	regime := detectRegime(date, bars)

	meta := &models.ScanMetadata{
		ScanDate:        date,
		TotalScanned:    len(universe),
		HighVolumeCount: highVolume,
		GainersFound:    len(gainers),
		LosersFound:     len(losers),
		ScanDurationMS:  time.Since(started).Milliseconds(),
	}

	log.Printf("📊 Scan %s complete: %d gainers, %d losers, %d high-volume of %d scanned (%dms, regime %s)",
		date, len(gainers), len(losers), highVolume, len(universe), meta.ScanDurationMS, regime.Regime)

	return &Result{
		Date:     date,
		Gainers:  gainers,
		Losers:   losers,
		Regime:   regime,
		Metadata: meta,
	}, nil
}

// fetchBars pulls daily bars in sequential batches. A failing batch is
// logged and skipped so one bad request cannot kill the whole scan.
func (s *Scanner) fetchBars(ctx context.Context, symbols []string, date string) map[string][]marketdata.Bar {
	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 200
	}

	all := make(map[string][]marketdata.Bar)
	for start := 0; start < len(symbols); start += batchSize {
		end := start + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		batch, err := s.gateway.DailyBars(ctx, symbols[start:end], date, date)
		if err != nil {
			log.Printf("⚠️ Bar fetch failed for batch %d-%d: %v", start, end, err)
			continue
		}
		for symbol, bars := range batch {
			all[symbol] = bars
		}
	}
	return all
}

// partitionAndRank splits candidates strictly by sign of change_pct, orders
// each side by momentum score descending and keeps the top half of
// maxResults per side. A short side is never backfilled from the other.
func partitionAndRank(candidates []models.MomentumRecord, maxResults int) (gainers, losers []models.MomentumRecord) {
	for _, c := range candidates {
		if c.ChangePct > 0 {
			c.Direction = models.DirectionGainer
			gainers = append(gainers, c)
		} else if c.ChangePct < 0 {
			c.Direction = models.DirectionLoser
			losers = append(losers, c)
		}
	}

	sort.SliceStable(gainers, func(i, j int) bool {
		return gainers[i].MomentumScore > gainers[j].MomentumScore
	})
	sort.SliceStable(losers, func(i, j int) bool {
		return losers[i].MomentumScore > losers[j].MomentumScore
	})

	perSide := maxResults / 2
	if len(gainers) > perSide {
		gainers = gainers[:perSide]
	}
	if len(losers) > perSide {
		losers = losers[:perSide]
	}

	for i := range gainers {
		gainers[i].Rank = i + 1
	}
	for i := range losers {
		losers[i].Rank = i + 1
	}
	return gainers, losers
}

// changePct is the day's move relative to its own open
func changePct(bar marketdata.Bar) float64 {
	if bar.Open == 0 {
		return 0
	}
	return (bar.Close - bar.Open) / bar.Open * 100
}

// indicatorPayload packs per-bar derived values as an opaque JSON blob
func indicatorPayload(bar marketdata.Bar, change float64) string {
	rangePct := 0.0
	if bar.Open != 0 {
		rangePct = (bar.High - bar.Low) / bar.Open * 100
	}
	closePos := 0.0
	if bar.High != bar.Low {
		closePos = (bar.Close - bar.Low) / (bar.High - bar.Low)
	}

	payload, err := json.Marshal(map[string]float64{
		"range_pct":      rangePct,
		"close_position": closePos,
		"gap_pct":        change,
	})
	if err != nil {
		return "{}"
	}
	return string(payload)
}

// Symbols returns the symbols present in a result, gainers first. Used to
// point the price stream at the day's movers.
func (r *Result) Symbols() []string {
	symbols := make([]string, 0, len(r.Gainers)+len(r.Losers))
	for _, g := range r.Gainers {
		symbols = append(symbols, g.Symbol)
	}
	for _, l := range r.Losers {
		symbols = append(symbols, l.Symbol)
	}
	return symbols
}

// String provides a one line summary for logging
func (r *Result) String() string {
	return fmt.Sprintf("scan %s: %d gainers, %d losers", r.Date, len(r.Gainers), len(r.Losers))
}
