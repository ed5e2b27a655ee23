package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownExchange indicates a symbol was configured against an exchange
// code that is not in the static exchange table.
var ErrUnknownExchange = errors.New("unknown exchange")

// Exchange describes a trading venue: its session hours in exchange-local
// time and the fixed minute offset that converts exchange-local time into
// the reference timezone.
type Exchange struct {
	Code          string
	Name          string
	OpenHour      int
	OpenMinute    int
	CloseHour     int
	CloseMinute   int
	OffsetMinutes int // exchange-local -> reference timezone
}

// exchanges is the static venue table, loaded once and never mutated.
var exchanges = map[string]Exchange{
	"NMS": {Code: "NMS", Name: "Nasdaq", OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0, OffsetMinutes: 360},
	"NYQ": {Code: "NYQ", Name: "NYSE", OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0, OffsetMinutes: 360},
	"LON": {Code: "LON", Name: "London Stock Exchange", OpenHour: 8, OpenMinute: 0, CloseHour: 16, CloseMinute: 30, OffsetMinutes: 60},
	"FRA": {Code: "FRA", Name: "Frankfurt Stock Exchange", OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30, OffsetMinutes: 0},
	"STO": {Code: "STO", Name: "Stockholm Stock Exchange", OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30, OffsetMinutes: 0},
	"PAR": {Code: "PAR", Name: "Paris Stock Exchange", OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30, OffsetMinutes: 0},
	"TYO": {Code: "TYO", Name: "Tokyo Stock Exchange", OpenHour: 9, OpenMinute: 0, CloseHour: 15, CloseMinute: 0, OffsetMinutes: -480},
	"HKG": {Code: "HKG", Name: "Hong Kong Stock Exchange", OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0, OffsetMinutes: -420},
	"TSE": {Code: "TSE", Name: "Toronto Stock Exchange", OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0, OffsetMinutes: 360},
}

// LookupExchange resolves an exchange code against the static table.
func LookupExchange(code string) (Exchange, error) {
	ex, ok := exchanges[code]
	if !ok {
		return Exchange{}, fmt.Errorf("%w: %s", ErrUnknownExchange, code)
	}
	return ex, nil
}

// SessionCloseAt returns the instant, expressed in the reference timezone,
// at which the session on the given calendar day closes.
func (e Exchange) SessionCloseAt(day time.Time) time.Time {
	closeLocal := time.Date(day.Year(), day.Month(), day.Day(), e.CloseHour, e.CloseMinute, 0, 0, day.Location())
	return closeLocal.Add(time.Duration(e.OffsetMinutes) * time.Minute)
}

// Reference is the single timezone all session-close comparisons are
// normalized into.
var Reference = loadReference()

func loadReference() *time.Location {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		return time.FixedZone("CET", 3600)
	}
	return loc
}

// Now returns the current instant in the reference timezone.
func Now() time.Time {
	return time.Now().In(Reference)
}
