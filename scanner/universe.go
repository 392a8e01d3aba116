package scanner

import (
	"context"
	"log"
	"regexp"
	"strings"

	"momentum-scout/marketdata"
)

// Venues whose listings are excluded from the scan universe
var excludedExchanges = map[string]bool{
	"OTC":  true,
	"PINK": true,
	"OTCM": true,
}

// leveragedPattern catches leveraged and inverse product names that show up
// as big movers every day without carrying any stock-specific momentum.
var leveragedPattern = regexp.MustCompile(`(?i)\b(2x|3x|ultra|leveraged|inverse|bear|bull shares|proshares|direxion)\b`)

// backupUniverse is used when the asset endpoint is unavailable. Liquid
// large caps plus the reference indices so a scan cycle still produces
// something useful.
var backupUniverse = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "AMD",
	"NFLX", "INTC", "BA", "JPM", "BAC", "WFC", "GS", "XOM", "CVX",
	"PFE", "JNJ", "UNH", "V", "MA", "DIS", "KO", "PEP", "WMT", "HD",
	"CRM", "ORCL", "ADBE", "PYPL", "SQ", "UBER", "ABNB", "COIN",
	"PLTR", "SOFI", "F", "GM", "T", "VZ",
	"SPY", "QQQ",
}

// buildUniverse resolves the scannable symbol list. Falls back to the fixed
// backup list when the asset source fails so the scan cycle never dies here.
func (s *Scanner) buildUniverse(ctx context.Context) []string {
	assets, err := s.gateway.TradableAssets(ctx)
	if err != nil {
		log.Printf("⚠️ Asset universe unavailable, using backup list: %v", err)
		return backupUniverse
	}

	symbols := make([]string, 0, len(assets))
	for _, a := range assets {
		if !includeAsset(a) {
			continue
		}
		symbols = append(symbols, a.Symbol)
	}

	if len(symbols) == 0 {
		log.Println("⚠️ Asset universe empty after filtering, using backup list")
		return backupUniverse
	}
	return symbols
}

// includeAsset applies the universe filters: US equities only, no OTC or
// pink-sheet venues, no leveraged or inverse products.
func includeAsset(a marketdata.Asset) bool {
	if !a.Tradable || !strings.EqualFold(a.Status, "active") {
		return false
	}
	if a.Class != "" && !strings.EqualFold(a.Class, "us_equity") {
		return false
	}
	if excludedExchanges[strings.ToUpper(a.Exchange)] {
		return false
	}
	if leveragedPattern.MatchString(a.Name) {
		return false
	}
	return true
}
