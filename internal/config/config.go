package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"BarVault/internal/market"
)

// SymbolGroup lists the tickers synchronized against one exchange.
type SymbolGroup struct {
	Exchange string   `yaml:"exchange"`
	Tickers  []string `yaml:"tickers"`
}

// Instrument is one resolved (exchange, ticker) pair.
type Instrument struct {
	Exchange string
	Ticker   string
}

// Config holds all application configuration.
type Config struct {
	API struct {
		ListenAddr string `yaml:"listen_addr"`
		APIKey     string `yaml:"api_key"`
	} `yaml:"api"`
	Provider struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"provider"`
	Storage struct {
		DataDir        string `yaml:"data_dir"`
		ParquetEnabled bool   `yaml:"parquet_enabled"`
		ParquetDir     string `yaml:"parquet_dir"`
	} `yaml:"storage"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		SyncCron string `yaml:"sync_cron"`
	} `yaml:"schedule"`
	Sync struct {
		Workers    int      `yaml:"workers"`
		Timeframes []string `yaml:"timeframes"`
	} `yaml:"sync"`
	Symbols []SymbolGroup `yaml:"symbols"`
	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.API.ListenAddr = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SYNC_CRON"); v != "" {
		cfg.Schedule.SyncCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.API.ListenAddr == "" {
		cfg.API.ListenAddr = ":8080"
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 30
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.ParquetDir == "" {
		cfg.Storage.ParquetDir = "data/parquet"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/barvault.db"
	}
	if cfg.Schedule.SyncCron == "" {
		// Hourly on weekdays, after most sessions can have closed.
		cfg.Schedule.SyncCron = "0 15 * * * 1-5"
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 4
	}
	if len(cfg.Sync.Timeframes) == 0 {
		cfg.Sync.Timeframes = []string{"1d", "1wk"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 14
	}

	return cfg, nil
}

// Validate checks that all required fields are set and reference known
// exchanges and timeframes.
func (c *Config) Validate() error {
	if c.API.APIKey == "" {
		return fmt.Errorf("api.api_key is required")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must list at least one exchange group")
	}
	for _, grp := range c.Symbols {
		if _, err := market.LookupExchange(grp.Exchange); err != nil {
			return fmt.Errorf("symbols: %w", err)
		}
		if len(grp.Tickers) == 0 {
			return fmt.Errorf("symbols: exchange %s has no tickers", grp.Exchange)
		}
	}
	for _, tf := range c.Sync.Timeframes {
		if _, err := market.ParseTimeframe(tf); err != nil {
			return fmt.Errorf("sync.timeframes: %w", err)
		}
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be positive")
	}
	return nil
}

// Instruments flattens the symbol groups into (exchange, ticker) pairs.
func (c *Config) Instruments() []Instrument {
	var out []Instrument
	for _, grp := range c.Symbols {
		for _, t := range grp.Tickers {
			out = append(out, Instrument{Exchange: grp.Exchange, Ticker: t})
		}
	}
	return out
}

// Timeframes returns the configured timeframes parsed. Call after
// Validate; unknown values are skipped.
func (c *Config) Timeframes() []market.Timeframe {
	var out []market.Timeframe
	for _, s := range c.Sync.Timeframes {
		tf, err := market.ParseTimeframe(s)
		if err != nil {
			continue
		}
		out = append(out, tf)
	}
	return out
}
