package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"BarVault/internal/api"
	"BarVault/internal/config"
	"BarVault/internal/engine"
	"BarVault/internal/export"
	"BarVault/internal/logger"
	"BarVault/internal/provider"
	"BarVault/internal/recorder"
	"BarVault/internal/scheduler"
	"BarVault/internal/store"
)

var (
	configFile string
	symbolsStr string
	runOnce    bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "barvault",
		Short: "Incremental market data synchronization daemon",
		Long:  `BarVault keeps per-instrument OHLCV series up to date by fetching only the session dates missing since each series' last checkpoint.`,
		Run:   run,
	}

	rootCmd.Flags().StringVar(&configFile, "config", "configs/config.yaml", "Path to config file")
	rootCmd.Flags().StringVar(&symbolsStr, "symbols", "", "Comma-separated EXCHANGE:TICKER pairs overriding the config")
	rootCmd.Flags().BoolVar(&runOnce, "once", false, "Run a single sync cycle and exit")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configFile = v
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if symbolsStr != "" {
		if err := applySymbolOverride(cfg, symbolsStr); err != nil {
			logrus.Fatalf("parse --symbols: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config validation: %v", err)
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger.Setup(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	log := logrus.StandardLogger()
	log.Info("barvault starting")

	p := provider.NewYahooProvider(cfg.Proxy)
	log.WithField("provider", p.Name()).Info("data source ready")

	fs := store.NewFileStore(cfg.Storage.DataDir)

	var exporter *export.ParquetExporter
	if cfg.Storage.ParquetEnabled {
		exporter = export.NewParquetExporter(cfg.Storage.ParquetDir)
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	eng := engine.New(cfg, p, fs, exporter, rec, log)

	if runOnce {
		if err := eng.SyncAll(context.Background()); err != nil {
			log.Fatalf("sync cycle: %v", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, eng, log)
	if err := sched.Register(cfg.Schedule.SyncCron); err != nil {
		log.Fatalf("register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := api.NewServer(cfg, eng, fs, log)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server: %v", err)
		}
	}()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, executing sync cycle now")
		go sched.RunNow()
	}

	log.Info("barvault is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("api shutdown")
	}
	log.Info("barvault stopped")
}

// applySymbolOverride replaces the configured symbol groups with
// EXCHANGE:TICKER pairs from the command line.
func applySymbolOverride(cfg *config.Config, raw string) error {
	groups := map[string][]string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
			return fmt.Errorf("invalid pair %q, want EXCHANGE:TICKER", part)
		}
		ex := strings.ToUpper(fields[0])
		groups[ex] = append(groups[ex], strings.ToUpper(fields[1]))
	}
	if len(groups) == 0 {
		return fmt.Errorf("no symbols given")
	}

	cfg.Symbols = cfg.Symbols[:0]
	for ex, tickers := range groups {
		cfg.Symbols = append(cfg.Symbols, config.SymbolGroup{Exchange: ex, Tickers: tickers})
	}
	return nil
}
