package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"BarVault/internal/calendar"
	"BarVault/internal/config"
	"BarVault/internal/export"
	"BarVault/internal/market"
	"BarVault/internal/provider"
	"BarVault/internal/recorder"
	"BarVault/internal/resolver"
	"BarVault/internal/series"
	"BarVault/internal/store"
)

// ErrCycleRunning is returned when a sync cycle is requested while another
// one is still in flight.
var ErrCycleRunning = errors.New("sync cycle already running")

// Engine drives incremental synchronization of all configured instruments.
// All timeframes of one instrument are handled by the same worker within a
// cycle, so no two goroutines ever touch the same instrument's files.
type Engine struct {
	cfg      *config.Config
	provider provider.Provider
	store    *store.FileStore
	exporter *export.ParquetExporter
	rec      recorder.Recorder
	log      *logrus.Logger

	running atomic.Bool
	now     func() time.Time
}

// New assembles an engine. exporter may be nil when parquet export is
// disabled.
func New(cfg *config.Config, p provider.Provider, fs *store.FileStore, exp *export.ParquetExporter, rec recorder.Recorder, log *logrus.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		provider: p,
		store:    fs,
		exporter: exp,
		rec:      rec,
		log:      log,
		now:      market.Now,
	}
}

// Running reports whether a sync cycle is in flight.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// SyncAll runs one full cycle over every configured instrument using a
// bounded worker pool. Only one cycle may run at a time.
func (e *Engine) SyncAll(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrCycleRunning
	}
	defer e.running.Store(false)

	instruments := e.cfg.Instruments()
	e.log.WithFields(logrus.Fields{
		"instruments": len(instruments),
		"workers":     e.cfg.Sync.Workers,
	}).Info("sync cycle started")

	jobs := make(chan config.Instrument)
	var wg sync.WaitGroup

	for i := 0; i < e.cfg.Sync.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range jobs {
				e.syncInstrument(ctx, inst)
			}
		}()
	}

	for _, inst := range instruments {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- inst:
		}
	}
	close(jobs)
	wg.Wait()

	e.log.Info("sync cycle finished")
	return nil
}

// syncInstrument handles every configured timeframe for one instrument.
// A failure in one timeframe never blocks the others.
func (e *Engine) syncInstrument(ctx context.Context, inst config.Instrument) {
	log := e.log.WithFields(logrus.Fields{
		"exchange": inst.Exchange,
		"symbol":   inst.Ticker,
	})

	ex, err := market.LookupExchange(inst.Exchange)
	if err != nil {
		log.WithError(err).Warn("skipping instrument")
		e.record(&recorder.SyncRecord{
			Exchange: inst.Exchange, Symbol: inst.Ticker,
			Status: "skipped", Error: err.Error(),
		})
		return
	}

	if err := e.ensureMetadata(ctx, inst); err != nil {
		log.WithError(err).Warn("metadata fetch failed")
	}

	for _, tf := range e.cfg.Timeframes() {
		if ctx.Err() != nil {
			return
		}
		if err := e.syncPair(ctx, ex, inst, tf); err != nil {
			log.WithError(err).WithField("timeframe", tf).Error("sync failed")
		}
	}
}

// ensureMetadata fetches and stores instrument metadata once.
func (e *Engine) ensureMetadata(ctx context.Context, inst config.Instrument) error {
	if e.store.HasMetadata(inst.Exchange, inst.Ticker) {
		return nil
	}
	fetchCtx, cancel := e.fetchContext(ctx)
	defer cancel()

	meta, err := e.provider.FetchMetadata(fetchCtx, inst.Ticker)
	if err != nil {
		return err
	}
	return e.store.WriteMetadata(inst.Exchange, inst.Ticker, meta)
}

// syncPair brings one (instrument, timeframe) series up to date. A pair
// with no checkpoint gets a full history load; otherwise only the missing
// session dates are fetched. The checkpoint only advances after the merged
// series is persisted.
func (e *Engine) syncPair(ctx context.Context, ex market.Exchange, inst config.Instrument, tf market.Timeframe) error {
	cps, err := e.store.ReadCheckpoints(inst.Exchange, inst.Ticker)
	if err != nil {
		return err
	}

	cp, ok := cps[tf]
	if !ok {
		return e.initializeSeries(ctx, inst, tf)
	}
	return e.synchronizeSeries(ctx, ex, inst, tf, cp)
}

// initializeSeries loads the provider's full history for a pair that has
// never been synchronized.
func (e *Engine) initializeSeries(ctx context.Context, inst config.Instrument, tf market.Timeframe) error {
	rec := &recorder.SyncRecord{
		Exchange: inst.Exchange, Symbol: inst.Ticker,
		Timeframe: string(tf), Mode: "initialize",
	}

	fetchCtx, cancel := e.fetchContext(ctx)
	defer cancel()

	bars, err := e.provider.FetchFullHistory(fetchCtx, inst.Ticker, tf.Interval())
	if err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
		e.record(rec)
		return fmt.Errorf("full history fetch: %w", err)
	}
	rec.RowsFetched = len(bars)

	if len(bars) == 0 {
		rec.Status = "skipped"
		e.record(rec)
		return nil
	}

	merged := series.Merge(tf, nil, bars)
	if err := e.persist(inst, tf, merged); err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
		e.record(rec)
		return err
	}

	checkpoint := merged[len(merged)-1].Time.Format("2006-01-02")
	if err := e.store.WriteCheckpoint(inst.Exchange, inst.Ticker, tf, checkpoint); err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
		e.record(rec)
		return err
	}

	rec.RowsTotal = len(merged)
	rec.Checkpoint = checkpoint
	rec.Status = "ok"
	e.record(rec)

	e.log.WithFields(logrus.Fields{
		"exchange": inst.Exchange, "symbol": inst.Ticker,
		"timeframe": tf, "rows": len(merged),
	}).Info("series initialized")
	return nil
}

// synchronizeSeries fetches only the session dates missing since the
// checkpoint and merges them into the stored series.
func (e *Engine) synchronizeSeries(ctx context.Context, ex market.Exchange, inst config.Instrument, tf market.Timeframe, checkpoint string) error {
	rec := &recorder.SyncRecord{
		Exchange: inst.Exchange, Symbol: inst.Ticker,
		Timeframe: string(tf), Mode: "synchronize",
	}

	dates, err := resolver.DatesNeedingUpdate(ex, tf, checkpoint, e.now())
	if err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
		e.record(rec)
		return fmt.Errorf("resolve dates: %w", err)
	}
	rec.DatesRequested = len(dates)

	if len(dates) == 0 {
		return nil
	}

	start, end := fetchWindow(tf, dates)

	fetchCtx, cancel := e.fetchContext(ctx)
	defer cancel()

	bars, err := e.provider.FetchRange(fetchCtx, inst.Ticker, tf.Interval(), start, end)
	if err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
		e.record(rec)
		return fmt.Errorf("range fetch: %w", err)
	}
	rec.RowsFetched = len(bars)

	if len(bars) == 0 {
		// Provider has nothing yet for these dates. Leave the checkpoint
		// alone so the next cycle retries them.
		rec.Status = "skipped"
		e.record(rec)
		return nil
	}

	existing, err := e.store.ReadSeries(inst.Exchange, inst.Ticker, tf)
	if err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
		e.record(rec)
		return err
	}

	merged := series.Merge(tf, existing, bars)
	if err := e.persist(inst, tf, merged); err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
		e.record(rec)
		return err
	}

	newCheckpoint := checkpointAfterMerge(tf, dates, merged)
	if err := e.store.WriteCheckpoint(inst.Exchange, inst.Ticker, tf, newCheckpoint); err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
		e.record(rec)
		return err
	}

	rec.RowsTotal = len(merged)
	rec.Checkpoint = newCheckpoint
	rec.Status = "ok"
	e.record(rec)

	e.log.WithFields(logrus.Fields{
		"exchange": inst.Exchange, "symbol": inst.Ticker,
		"timeframe": tf, "dates": len(dates), "rows": len(bars),
	}).Info("series synchronized")
	return nil
}

// checkpointAfterMerge derives the checkpoint from what was actually
// persisted, never from what was merely requested. A weekly series advances
// to the resolved Friday boundary: its bars are stamped at week start, so
// the last merged row would re-propose the same week forever, and the
// non-empty fetch already confirmed a row inside that week. Other grains
// advance to the last merged session, capped at the last requested date;
// sessions the provider did not return stay pending for the next cycle.
func checkpointAfterMerge(tf market.Timeframe, dates []time.Time, merged []market.Bar) string {
	lastRequested := dates[len(dates)-1]
	if tf == market.Weekly {
		return lastRequested.Format("2006-01-02")
	}
	last := merged[len(merged)-1].Time
	if calendar.Midnight(last).After(lastRequested) {
		return lastRequested.Format("2006-01-02")
	}
	return last.Format("2006-01-02")
}

// fetchWindow converts the resolved session dates into a half-open
// provider query range. Weekly dates are Friday boundaries, so the window
// opens on that week's Monday.
func fetchWindow(tf market.Timeframe, dates []time.Time) (start, end time.Time) {
	start = dates[0]
	if tf == market.Weekly {
		start = start.AddDate(0, 0, -4)
	}
	end = dates[len(dates)-1].AddDate(0, 0, 1)
	return start, end
}

// persist writes the series file and, when enabled, mirrors it to parquet.
func (e *Engine) persist(inst config.Instrument, tf market.Timeframe, bars []market.Bar) error {
	if err := e.store.WriteSeries(inst.Exchange, inst.Ticker, tf, bars); err != nil {
		return fmt.Errorf("write series: %w", err)
	}
	if e.exporter != nil {
		if err := e.exporter.WriteSeries(inst.Exchange, inst.Ticker, tf, bars); err != nil {
			// Export is best-effort; the CSV series is the source of truth.
			e.log.WithError(err).WithFields(logrus.Fields{
				"symbol": inst.Ticker, "timeframe": tf,
			}).Warn("parquet export failed")
		}
	}
	return nil
}

func (e *Engine) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(e.cfg.Provider.TimeoutSeconds) * time.Second
	return context.WithTimeout(ctx, timeout)
}

func (e *Engine) record(rec *recorder.SyncRecord) {
	if err := e.rec.RecordSync(rec); err != nil {
		e.log.WithError(err).Warn("record sync run")
	}
}
