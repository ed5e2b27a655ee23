package recorder

// SyncRecord describes the outcome of one symbol/timeframe sync attempt.
type SyncRecord struct {
	Exchange       string
	Symbol         string
	Timeframe      string
	Mode           string // "initialize" or "synchronize"
	DatesRequested int
	RowsFetched    int
	RowsTotal      int
	Checkpoint     string
	Status         string // "ok", "skipped", "failed"
	Error          string
}

// Recorder persists sync run history for analysis.
type Recorder interface {
	RecordSync(rec *SyncRecord) error
	Close() error
}
