package utils

import (
	"time"

	"wse-scanner/internal/models"
)

// WarsawLocation is the timezone of the Warsaw Stock Exchange.
var WarsawLocation *time.Location

func init() {
	var err error
	WarsawLocation, err = time.LoadLocation("Europe/Warsaw")
	if err != nil {
		// Fallback to CET
		WarsawLocation = time.FixedZone("CET", 1*60*60)
	}
}

// Quotes for a session are published after its close.
const (
	sessionCloseHour   = 17
	sessionCloseMinute = 5
)

// MarketNow returns the current time in Warsaw.
func MarketNow() time.Time {
	return time.Now().In(WarsawLocation)
}

// IsTradingDay reports whether t falls on a weekday. Exchange holidays are not tracked.
func IsTradingDay(t time.Time) bool {
	wd := t.In(WarsawLocation).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// SessionDate returns the YYYYMMDD of t in Warsaw.
func SessionDate(t time.Time) string {
	return t.In(WarsawLocation).Format(models.DateLayout)
}

// IsAfterClose reports whether the day's session at t has finished.
func IsAfterClose(t time.Time) bool {
	local := t.In(WarsawLocation)
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= sessionCloseHour*60+sessionCloseMinute
}

// LastSessionDate returns the most recent trading day whose session has closed at t.
func LastSessionDate(t time.Time) string {
	day := t.In(WarsawLocation)
	if !IsAfterClose(day) {
		day = day.AddDate(0, 0, -1)
	}
	for !IsTradingDay(day) {
		day = day.AddDate(0, 0, -1)
	}
	return day.Format(models.DateLayout)
}
