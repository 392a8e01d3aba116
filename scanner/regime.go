package scanner

import (
	"log"

	models "momentum-scout/database/models_pkg"
	"momentum-scout/marketdata"
)

// Reference indices and the band separating neutral from a directional day
const (
	regimeBullSymbol = "SPY"
	regimeTechSymbol = "QQQ"
	regimeBandPct    = 0.3
)

// detectRegime labels the scan date from the reference index moves. Both
// indices above the band is bullish, both below is bearish, anything mixed
// or inside the band is neutral.
func detectRegime(date string, bars map[string][]marketdata.Bar) *models.MarketRegimeRecord {
	spy, spyOK := barForDate(bars[regimeBullSymbol], date)
	qqq, qqqOK := barForDate(bars[regimeTechSymbol], date)
	if !spyOK || !qqqOK {
		log.Printf("⚠️ Reference index bars missing for %s, regime defaults to neutral", date)
		return &models.MarketRegimeRecord{
			ScanDate: date,
			Regime:   models.RegimeNeutral,
		}
	}

	spyChange := changePct(spy)
	qqqChange := changePct(qqq)

	regime := models.RegimeNeutral
	switch {
	case spyChange > regimeBandPct && qqqChange > regimeBandPct:
		regime = models.RegimeBullish
	case spyChange < -regimeBandPct && qqqChange < -regimeBandPct:
		regime = models.RegimeBearish
	}

	return &models.MarketRegimeRecord{
		ScanDate:     date,
		Regime:       regime,
		SPYChangePct: spyChange,
		QQQChangePct: qqqChange,
	}
}

func barForDate(bars []marketdata.Bar, date string) (marketdata.Bar, bool) {
	for _, b := range bars {
		if b.Date == date {
			return b, true
		}
	}
	return marketdata.Bar{}, false
}
