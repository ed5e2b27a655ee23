package calendar

import (
	"time"

	"BarVault/internal/market"
)

// SessionHasEnded reports whether the exchange's session close for the day
// of the supplied reference-timezone instant has already passed. On the
// reference timezone's Saturday and Sunday no session exists, so this is
// always false regardless of the time component.
func SessionHasEnded(ex market.Exchange, ref time.Time) bool {
	if wd := ref.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !ref.Before(ex.SessionCloseAt(ref))
}

// IsTradingDay reports whether the date falls on a weekday. Holidays are
// treated as ordinary weekdays that simply yield no data from the provider.
func IsTradingDay(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Midnight truncates an instant to 00:00 of its calendar day, keeping the
// location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// TradingDaysBetween returns every weekday in [start, end], both truncated
// to midnight, in ascending order. Empty when start is after end.
func TradingDaysBetween(start, end time.Time) []time.Time {
	first := Midnight(start)
	last := Midnight(end)

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// LastClosedFriday returns the most recent Friday whose session close has
// passed relative to now. On Sunday no week is considered closed yet and
// ok is false. A Friday still mid-session resolves to the previous week's
// Friday.
func LastClosedFriday(ex market.Exchange, now time.Time) (time.Time, bool) {
	if now.Weekday() == time.Sunday {
		return time.Time{}, false
	}

	friday := Midnight(now)
	for friday.Weekday() != time.Friday {
		friday = friday.AddDate(0, 0, -1)
	}

	// "Closed" means that Friday's close has passed relative to now, not
	// relative to the Friday's own clock.
	if now.Before(ex.SessionCloseAt(friday)) {
		friday = friday.AddDate(0, 0, -7)
	}
	return friday, true
}
