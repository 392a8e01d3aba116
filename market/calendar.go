// Package market provides session timing for the traded venue: trade date
// resolution, trading hours checks and the end-of-day exit window.
package market

import (
	"log"
	"time"

	"momentum-scout/config"
)

// Calendar answers time questions against the configured exchange timezone.
// All methods convert the supplied instant before comparing so callers can
// pass times in any zone.
type Calendar struct {
	loc           *time.Location
	openHour      int
	openMinute    int
	closeHour     int
	closeMinute   int
	eodExitHour   int
	eodExitMinute int
}

// NewCalendar builds a calendar from market configuration
func NewCalendar(cfg config.MarketConfig) *Calendar {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("⚠️ Failed to load timezone %s: %v", cfg.Timezone, err)
		// Fallback: assume US Eastern standard offset
		loc = time.FixedZone("ET", -5*60*60)
	}

	return &Calendar{
		loc:           loc,
		openHour:      cfg.OpenHour,
		openMinute:    cfg.OpenMinute,
		closeHour:     cfg.CloseHour,
		closeMinute:   cfg.CloseMinute,
		eodExitHour:   cfg.EODExitHour,
		eodExitMinute: cfg.EODExitMinute,
	}
}

// TradeDate returns the exchange-local calendar date as YYYY-MM-DD. The same
// instant always maps to the same trade date regardless of the caller's zone.
func (c *Calendar) TradeDate(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// IsTradingTime checks if the given time falls within regular trading hours
func (c *Calendar) IsTradingTime(t time.Time) bool {
	local := t.In(c.loc)

	weekday := local.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	return minutes >= c.openMinutes() && minutes < c.closeMinutes()
}

// SessionClosed reports whether the regular session for t's trade date has
// already ended. Weekends count as closed.
func (c *Calendar) SessionClosed(t time.Time) bool {
	local := t.In(c.loc)

	weekday := local.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return true
	}

	minutes := local.Hour()*60 + local.Minute()
	return minutes >= c.closeMinutes()
}

// InEODExitWindow reports whether t falls inside the forced exit window at
// the end of the regular session.
func (c *Calendar) InEODExitWindow(t time.Time) bool {
	local := t.In(c.loc)

	weekday := local.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	return minutes >= c.eodExitMinutes() && minutes < c.closeMinutes()
}

// Session returns a human readable session label for logging
func (c *Calendar) Session(t time.Time) string {
	local := t.In(c.loc)

	weekday := local.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return "Weekend"
	}

	minutes := local.Hour()*60 + local.Minute()
	switch {
	case minutes < c.openMinutes():
		return "Pre-Market"
	case minutes >= c.eodExitMinutes() && minutes < c.closeMinutes():
		return "EOD Exit Window"
	case minutes < c.closeMinutes():
		return "Regular Session"
	default:
		return "After-Hours"
	}
}

func (c *Calendar) openMinutes() int {
	return c.openHour*60 + c.openMinute
}

func (c *Calendar) closeMinutes() int {
	return c.closeHour*60 + c.closeMinute
}

func (c *Calendar) eodExitMinutes() int {
	return c.eodExitHour*60 + c.eodExitMinute
}
