package usecase

import "time"

// NSE trading holidays 2024-2025. Updated annually.
var nseHolidays = []string{
	"2024-01-26", "2024-03-08", "2024-03-25", "2024-03-29",
	"2024-04-11", "2024-04-17", "2024-04-21", "2024-05-01",
	"2024-05-23", "2024-06-17", "2024-07-17", "2024-08-15",
	"2024-08-26", "2024-10-02", "2024-10-12", "2024-11-01",
	"2024-11-02", "2024-11-15", "2024-12-25",
	"2025-01-26", "2025-03-14", "2025-03-31", "2025-04-10",
	"2025-04-14", "2025-04-18", "2025-05-01", "2025-08-15",
	"2025-08-27", "2025-10-02", "2025-10-21", "2025-11-01",
	"2025-11-05", "2025-12-25",
}

// TradingCalendar answers whether a date is an NSE trading day:
// weekdays minus the exchange holiday list.
type TradingCalendar struct {
	holidays map[string]bool
}

// NewTradingCalendar builds a calendar from ISO date strings. An empty
// list falls back to the built-in NSE holiday table.
func NewTradingCalendar(holidays []string) *TradingCalendar {
	if len(holidays) == 0 {
		holidays = nseHolidays
	}
	m := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		m[h] = true
	}
	return &TradingCalendar{holidays: m}
}

func (c *TradingCalendar) IsTradingDay(date time.Time) bool {
	wd := date.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.holidays[date.Format("2006-01-02")]
}

// NextTradingDay returns the first trading day strictly after date.
func (c *TradingCalendar) NextTradingDay(date time.Time) time.Time {
	next := date.AddDate(0, 0, 1)
	for !c.IsTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
