package utils

import "time"

// Taipei is the Taiwan Standard Time location (UTC+8).
var Taipei *time.Location

func init() {
	var err error
	Taipei, err = time.LoadLocation("Asia/Taipei")
	if err != nil {
		// Fallback: fixed zone if tz database is not available
		Taipei = time.FixedZone("CST", 8*60*60)
	}
}

// NowTaipei returns the current time in Taiwan Standard Time.
func NowTaipei() time.Time {
	return time.Now().In(Taipei)
}

// MarketOpenTime returns the TWSE opening time (9:00 AM) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(Taipei)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, Taipei)
}

// MarketCloseTime returns the TWSE closing time (1:30 PM) for a given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(Taipei)
	return time.Date(d.Year(), d.Month(), d.Day(), 13, 30, 0, 0, Taipei)
}

// IsTradingDay reports whether the given date falls on a weekday.
// Exchange holidays are not modeled; historical bar data is authoritative.
func IsTradingDay(t time.Time) bool {
	wd := t.In(Taipei).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsMarketOpenAt checks if the TWSE would be open at the given time.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(Taipei)
	if !IsTradingDay(t) {
		return false
	}
	open := MarketOpenTime(t)
	close := MarketCloseTime(t)
	return !t.Before(open) && !t.After(close)
}

// MarketStatus returns a human-readable market status string.
func MarketStatus() string {
	if IsMarketOpenAt(NowTaipei()) {
		return "OPEN"
	}
	return "CLOSED"
}

// DaysBetween returns the number of calendar days between two timestamps.
func DaysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}
