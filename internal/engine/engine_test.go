package engine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"BarVault/internal/config"
	"BarVault/internal/market"
	"BarVault/internal/provider"
	"BarVault/internal/recorder"
	"BarVault/internal/store"
)

func testConfig(t *testing.T, timeframes ...string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Provider.TimeoutSeconds = 5
	cfg.Sync.Workers = 1
	cfg.Sync.Timeframes = timeframes
	cfg.Symbols = []config.SymbolGroup{{Exchange: "NMS", Tickers: []string{"AAPL"}}}
	return cfg
}

func testEngine(t *testing.T, cfg *config.Config, p provider.Provider) (*Engine, *store.FileStore) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	fs := store.NewFileStore(t.TempDir())
	eng := New(cfg, p, fs, nil, recorder.NewNoopRecorder(), log)
	return eng, fs
}

func refDate(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, market.Reference)
}

func dailyBar(day int, close float64) market.Bar {
	return market.Bar{
		Time:  time.Date(2024, time.January, day, 0, 0, 0, 0, market.Reference),
		Open:  close, High: close, Low: close, Close: close,
	}
}

func TestSyncAllInitializesNewPair(t *testing.T) {
	mock := &provider.MockProvider{
		HistoryBars: []market.Bar{dailyBar(2, 100), dailyBar(3, 101), dailyBar(4, 102)},
	}
	eng, fs := testEngine(t, testConfig(t, "1d"), mock)

	if err := eng.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	bars, err := fs.ReadSeries("NMS", "AAPL", market.Daily)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}

	cps, err := fs.ReadCheckpoints("NMS", "AAPL")
	if err != nil {
		t.Fatalf("ReadCheckpoints: %v", err)
	}
	if cps[market.Daily] != "2024-01-04" {
		t.Fatalf("checkpoint = %q, want last bar date 2024-01-04", cps[market.Daily])
	}
}

func TestSyncAllSynchronizesExistingPair(t *testing.T) {
	mock := &provider.MockProvider{
		RangeBars: []market.Bar{dailyBar(3, 101), dailyBar(4, 102), dailyBar(5, 103)},
	}
	eng, fs := testEngine(t, testConfig(t, "1d"), mock)
	eng.now = func() time.Time { return refDate(2024, time.January, 5, 23, 0) }

	if err := fs.WriteSeries("NMS", "AAPL", market.Daily, []market.Bar{dailyBar(2, 100)}); err != nil {
		t.Fatalf("seed series: %v", err)
	}
	if err := fs.WriteCheckpoint("NMS", "AAPL", market.Daily, "2024-01-02"); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	if err := eng.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if len(mock.RangeCalls) != 1 {
		t.Fatalf("got %d range calls, want 1", len(mock.RangeCalls))
	}
	call := mock.RangeCalls[0]
	if got := call.Start.Format("2006-01-02"); got != "2024-01-03" {
		t.Errorf("fetch start = %s, want 2024-01-03", got)
	}
	if got := call.End.Format("2006-01-02"); got != "2024-01-06" {
		t.Errorf("fetch end = %s, want 2024-01-06 (exclusive bound)", got)
	}

	bars, err := fs.ReadSeries("NMS", "AAPL", market.Daily)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(bars) != 4 {
		t.Fatalf("got %d bars after merge, want 4", len(bars))
	}

	cps, _ := fs.ReadCheckpoints("NMS", "AAPL")
	if cps[market.Daily] != "2024-01-05" {
		t.Fatalf("checkpoint = %q, want 2024-01-05", cps[market.Daily])
	}
}

func TestSyncAllPartialFetchKeepsMissingDatesPending(t *testing.T) {
	// Three sessions resolved (Jan 3-5) but the provider only has Jan 3.
	mock := &provider.MockProvider{
		RangeBars: []market.Bar{dailyBar(3, 101)},
	}
	eng, fs := testEngine(t, testConfig(t, "1d"), mock)
	eng.now = func() time.Time { return refDate(2024, time.January, 5, 23, 0) }

	if err := fs.WriteCheckpoint("NMS", "AAPL", market.Daily, "2024-01-02"); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	if err := eng.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	// The checkpoint must track the last persisted row, not the last
	// requested date, so Jan 4-5 are proposed again next cycle.
	cps, _ := fs.ReadCheckpoints("NMS", "AAPL")
	if cps[market.Daily] != "2024-01-03" {
		t.Fatalf("checkpoint = %q, want last persisted row 2024-01-03", cps[market.Daily])
	}

	mock.RangeBars = []market.Bar{dailyBar(4, 102), dailyBar(5, 103)}
	if err := eng.SyncAll(context.Background()); err != nil {
		t.Fatalf("second SyncAll: %v", err)
	}
	if len(mock.RangeCalls) != 2 {
		t.Fatalf("got %d range calls, want 2", len(mock.RangeCalls))
	}
	if got := mock.RangeCalls[1].Start.Format("2006-01-02"); got != "2024-01-04" {
		t.Errorf("second fetch start = %s, want 2024-01-04", got)
	}

	bars, err := fs.ReadSeries("NMS", "AAPL", market.Daily)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("got %d bars after catch-up, want 3", len(bars))
	}
	cps, _ = fs.ReadCheckpoints("NMS", "AAPL")
	if cps[market.Daily] != "2024-01-05" {
		t.Fatalf("checkpoint = %q after catch-up, want 2024-01-05", cps[market.Daily])
	}
}

func TestSyncAllWeeklyCheckpointStaysOnBoundary(t *testing.T) {
	// Real weekly bars are stamped at week start (Monday Jan 15); the
	// checkpoint must still advance to the Friday boundary or the same
	// week would be proposed forever.
	mock := &provider.MockProvider{
		RangeBars: []market.Bar{dailyBar(15, 110)},
	}
	eng, fs := testEngine(t, testConfig(t, "1wk"), mock)
	eng.now = func() time.Time { return refDate(2024, time.January, 19, 23, 0) }

	if err := fs.WriteCheckpoint("NMS", "AAPL", market.Weekly, "2024-01-05"); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	if err := eng.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	cps, _ := fs.ReadCheckpoints("NMS", "AAPL")
	if cps[market.Weekly] != "2024-01-19" {
		t.Fatalf("checkpoint = %q, want boundary 2024-01-19", cps[market.Weekly])
	}
}

func TestSyncAllWeeklyFetchWindow(t *testing.T) {
	mock := &provider.MockProvider{
		RangeBars: []market.Bar{dailyBar(19, 110)},
	}
	eng, fs := testEngine(t, testConfig(t, "1wk"), mock)
	eng.now = func() time.Time { return refDate(2024, time.January, 19, 23, 0) }

	if err := fs.WriteCheckpoint("NMS", "AAPL", market.Weekly, "2024-01-05"); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	if err := eng.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if len(mock.RangeCalls) != 1 {
		t.Fatalf("got %d range calls, want 1", len(mock.RangeCalls))
	}
	call := mock.RangeCalls[0]
	// The boundary is Friday Jan 19; the window opens on that week's Monday.
	if got := call.Start.Format("2006-01-02"); got != "2024-01-15" {
		t.Errorf("fetch start = %s, want 2024-01-15", got)
	}
	if got := call.End.Format("2006-01-02"); got != "2024-01-20" {
		t.Errorf("fetch end = %s, want 2024-01-20", got)
	}

	cps, _ := fs.ReadCheckpoints("NMS", "AAPL")
	if cps[market.Weekly] != "2024-01-19" {
		t.Fatalf("checkpoint = %q, want 2024-01-19", cps[market.Weekly])
	}
}

func TestSyncAllFetchFailureKeepsCheckpoint(t *testing.T) {
	mock := &provider.MockProvider{Err: errors.New("provider down")}
	eng, fs := testEngine(t, testConfig(t, "1d"), mock)
	eng.now = func() time.Time { return refDate(2024, time.January, 5, 23, 0) }

	if err := fs.WriteCheckpoint("NMS", "AAPL", market.Daily, "2024-01-02"); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	if err := eng.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	cps, _ := fs.ReadCheckpoints("NMS", "AAPL")
	if cps[market.Daily] != "2024-01-02" {
		t.Fatalf("checkpoint advanced to %q despite fetch failure", cps[market.Daily])
	}
}

func TestSyncAllEmptyFetchKeepsCheckpoint(t *testing.T) {
	mock := &provider.MockProvider{RangeBars: nil}
	eng, fs := testEngine(t, testConfig(t, "1d"), mock)
	eng.now = func() time.Time { return refDate(2024, time.January, 5, 23, 0) }

	if err := fs.WriteCheckpoint("NMS", "AAPL", market.Daily, "2024-01-02"); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	if err := eng.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	cps, _ := fs.ReadCheckpoints("NMS", "AAPL")
	if cps[market.Daily] != "2024-01-02" {
		t.Fatalf("checkpoint advanced to %q on empty fetch", cps[market.Daily])
	}
}

func TestSyncAllSkipsUnknownExchange(t *testing.T) {
	mock := &provider.MockProvider{
		HistoryBars: []market.Bar{dailyBar(2, 100)},
	}
	cfg := testConfig(t, "1d")
	cfg.Symbols = append(cfg.Symbols, config.SymbolGroup{Exchange: "XXX", Tickers: []string{"BOGUS"}})
	eng, fs := testEngine(t, cfg, mock)

	if err := eng.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	// The valid instrument still synchronized.
	bars, err := fs.ReadSeries("NMS", "AAPL", market.Daily)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("got %d bars for valid instrument, want 1", len(bars))
	}
}

func TestSyncAllRejectsConcurrentCycle(t *testing.T) {
	mock := &provider.MockProvider{}
	eng, _ := testEngine(t, testConfig(t, "1d"), mock)

	eng.running.Store(true)
	if err := eng.SyncAll(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Fatalf("err = %v, want ErrCycleRunning", err)
	}
	eng.running.Store(false)

	if eng.Running() {
		t.Fatal("Running() = true after cycle cleared")
	}
}

func TestSyncAllWritesMetadataOnce(t *testing.T) {
	mock := &provider.MockProvider{
		HistoryBars: []market.Bar{dailyBar(2, 100)},
		Meta:        &market.Metadata{Symbol: "AAPL", Currency: "USD"},
	}
	eng, fs := testEngine(t, testConfig(t, "1d"), mock)

	if err := eng.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	meta, err := fs.ReadMetadata("NMS", "AAPL")
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if meta == nil || meta.Currency != "USD" {
		t.Fatalf("metadata = %+v, want stored mock metadata", meta)
	}
}
