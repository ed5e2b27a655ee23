package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists sync run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so ad-hoc queries can run while a sync cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logrus.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			exchange        TEXT NOT NULL,
			symbol          TEXT NOT NULL,
			timeframe       TEXT NOT NULL,
			mode            TEXT,
			dates_requested INTEGER,
			rows_fetched    INTEGER,
			rows_total      INTEGER,
			checkpoint      TEXT,
			status          TEXT,
			error           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_ts ON sync_runs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_symbol ON sync_runs(exchange, symbol, timeframe)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSync(rec *SyncRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO sync_runs
		(timestamp, exchange, symbol, timeframe, mode,
		 dates_requested, rows_fetched, rows_total, checkpoint, status, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.Exchange, rec.Symbol, rec.Timeframe, rec.Mode,
		rec.DatesRequested, rec.RowsFetched, rec.RowsTotal,
		rec.Checkpoint, rec.Status, rec.Error,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	logrus.Info("closing sqlite recorder")
	return r.db.Close()
}
