package resolver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"BarVault/internal/calendar"
	"BarVault/internal/market"
)

// ErrMalformedCheckpoint indicates a stored checkpoint timestamp could not
// be parsed. Callers must skip the cycle for that pair rather than treat it
// as an empty history.
var ErrMalformedCheckpoint = errors.New("malformed checkpoint")

// checkpointLayouts are tried in order; checkpoints may be written as full
// timestamps or bare dates depending on which code path produced them.
var checkpointLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseCheckpoint parses a stored checkpoint permissively.
func ParseCheckpoint(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range checkpointLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedCheckpoint, s)
}

// DatesNeedingUpdate returns the session dates that must be fetched for a
// pair, given its last checkpoint and the current reference-timezone
// instant. The checkpoint's own date is exclusive. Sessions that have not
// closed yet are never proposed.
func DatesNeedingUpdate(ex market.Exchange, tf market.Timeframe, checkpoint string, now time.Time) ([]time.Time, error) {
	last, err := ParseCheckpoint(checkpoint, now.Location())
	if err != nil {
		return nil, err
	}

	if tf == market.Weekly {
		friday, ok := calendar.LastClosedFriday(ex, now)
		if !ok {
			return nil, nil
		}
		// Only the single most recent closed week boundary is ever
		// proposed; the checkpoint advancing past it ends the cycle.
		if calendar.Midnight(last).Before(friday) {
			return []time.Time{friday}, nil
		}
		return nil, nil
	}

	days := calendar.TradingDaysBetween(last, now)

	today := calendar.Midnight(now)
	if n := len(days); n > 0 && days[n-1].Equal(today) && !calendar.SessionHasEnded(ex, now) {
		days = days[:n-1]
	}
	if len(days) > 0 && days[0].Equal(calendar.Midnight(last)) {
		days = days[1:]
	}
	return days, nil
}

// ShouldUpdate reports whether a pair needs a sync cycle: always true when
// it has never been synchronized, otherwise whenever at least one session
// date is pending.
func ShouldUpdate(ex market.Exchange, tf market.Timeframe, checkpoints map[market.Timeframe]string, now time.Time) (bool, error) {
	cp, ok := checkpoints[tf]
	if !ok {
		return true, nil
	}
	dates, err := DatesNeedingUpdate(ex, tf, cp, now)
	if err != nil {
		return false, err
	}
	return len(dates) > 0, nil
}
