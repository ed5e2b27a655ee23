package market

import (
	"fmt"
	"time"
)

// Timeframe is the sampling grain of a series.
type Timeframe string

const (
	Minute1  Timeframe = "1m"
	Minute5  Timeframe = "5m"
	Minute15 Timeframe = "15m"
	Hourly   Timeframe = "1h"
	Daily    Timeframe = "1d"
	Weekly   Timeframe = "1wk"
)

// Timeframes lists every supported grain in ascending duration order.
var Timeframes = []Timeframe{Minute1, Minute5, Minute15, Hourly, Daily, Weekly}

// providerIntervals maps each timeframe to the provider's interval code.
var providerIntervals = map[Timeframe]string{
	Minute1:  "1m",
	Minute5:  "5m",
	Minute15: "15m",
	Hourly:   "1h",
	Daily:    "1d",
	Weekly:   "1wk",
}

// ParseTimeframe validates a timeframe string from configuration.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := providerIntervals[tf]; !ok {
		return "", fmt.Errorf("invalid timeframe: %q", s)
	}
	return tf, nil
}

// Interval returns the provider query interval code for the timeframe.
func (tf Timeframe) Interval() string {
	return providerIntervals[tf]
}

// Intraday reports whether the grain is finer than one session.
func (tf Timeframe) Intraday() bool {
	switch tf {
	case Minute1, Minute5, Minute15, Hourly:
		return true
	}
	return false
}

// Key returns the primary date key for a bar timestamp at this grain.
// Daily and weekly bars are keyed by calendar date; intraday bars keep
// the full timestamp so multiple bars per session stay distinct.
func (tf Timeframe) Key(t time.Time) string {
	if tf.Intraday() {
		return t.Format(time.RFC3339)
	}
	return t.Format("2006-01-02")
}
