package market

import (
	"errors"
	"testing"
	"time"
)

func TestLookupExchange(t *testing.T) {
	ex, err := LookupExchange("NMS")
	if err != nil {
		t.Fatalf("LookupExchange(NMS): %v", err)
	}
	if ex.CloseHour != 16 || ex.OffsetMinutes != 360 {
		t.Fatalf("NMS = %+v, wrong session parameters", ex)
	}

	_, err = LookupExchange("XXX")
	if !errors.Is(err, ErrUnknownExchange) {
		t.Fatalf("err = %v, want ErrUnknownExchange", err)
	}
}

func TestSessionCloseAt(t *testing.T) {
	cases := []struct {
		code string
		want string // reference-timezone close on 2024-01-05
	}{
		{"NMS", "22:00"}, // 16:00 local +360
		{"LON", "17:30"}, // 16:30 local +60
		{"STO", "17:30"}, // already reference-local
		{"TYO", "07:00"}, // 15:00 local -480
	}

	day := time.Date(2024, time.January, 5, 0, 0, 0, 0, Reference)
	for _, tc := range cases {
		ex, err := LookupExchange(tc.code)
		if err != nil {
			t.Fatalf("lookup %s: %v", tc.code, err)
		}
		got := ex.SessionCloseAt(day).Format("15:04")
		if got != tc.want {
			t.Errorf("%s close = %s, want %s", tc.code, got, tc.want)
		}
	}
}

func TestParseTimeframe(t *testing.T) {
	for _, s := range []string{"1m", "5m", "15m", "1h", "1d", "1wk"} {
		tf, err := ParseTimeframe(s)
		if err != nil {
			t.Fatalf("ParseTimeframe(%q): %v", s, err)
		}
		if string(tf) != s {
			t.Errorf("ParseTimeframe(%q) = %q", s, tf)
		}
	}

	for _, s := range []string{"", "1w", "daily", "2d"} {
		if _, err := ParseTimeframe(s); err == nil {
			t.Errorf("ParseTimeframe(%q) succeeded, want error", s)
		}
	}
}

func TestTimeframeKey(t *testing.T) {
	ts := time.Date(2024, time.January, 3, 15, 30, 0, 0, Reference)

	if k := Daily.Key(ts); k != "2024-01-03" {
		t.Errorf("daily key = %q", k)
	}
	if k := Weekly.Key(ts); k != "2024-01-03" {
		t.Errorf("weekly key = %q", k)
	}

	// Intraday bars on the same date must not collide.
	later := ts.Add(time.Hour)
	if Hourly.Key(ts) == Hourly.Key(later) {
		t.Error("hourly keys collide for distinct bars")
	}
}

func TestIntraday(t *testing.T) {
	for tf, want := range map[Timeframe]bool{
		Minute1: true, Minute5: true, Minute15: true, Hourly: true,
		Daily: false, Weekly: false,
	} {
		if got := tf.Intraday(); got != want {
			t.Errorf("%s.Intraday() = %v, want %v", tf, got, want)
		}
	}
}
