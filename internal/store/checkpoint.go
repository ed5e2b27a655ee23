package store

import (
	"encoding/json"
	"fmt"
	"os"

	"BarVault/internal/market"
)

const checkpointFile = "last_update"

// Checkpoints maps each timeframe to the last timestamp for which data is
// confirmed persisted.
type Checkpoints map[market.Timeframe]string

// CheckpointPath returns the JSON location of an instrument's checkpoints.
func (s *FileStore) CheckpointPath(exchange, symbol string) string {
	return s.Path(exchange, symbol, checkpointFile, "json")
}

// ReadCheckpoints loads an instrument's checkpoint record. A missing file
// means the instrument was never synchronized and yields an empty map.
func (s *FileStore) ReadCheckpoints(exchange, symbol string) (Checkpoints, error) {
	data, err := os.ReadFile(s.CheckpointPath(exchange, symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoints{}, nil
		}
		return nil, fmt.Errorf("read checkpoints: %w", err)
	}
	var cps Checkpoints
	if err := json.Unmarshal(data, &cps); err != nil {
		return nil, fmt.Errorf("parse checkpoints: %w", err)
	}
	if cps == nil {
		cps = Checkpoints{}
	}
	return cps, nil
}

// WriteCheckpoint overwrites one timeframe's checkpoint, preserving the
// others. The rename-based write means a reader never sees a partial
// record. Must only be called after a successful, non-empty merge.
func (s *FileStore) WriteCheckpoint(exchange, symbol string, tf market.Timeframe, value string) error {
	cps, err := s.ReadCheckpoints(exchange, symbol)
	if err != nil {
		return err
	}
	cps[tf] = value

	data, err := json.MarshalIndent(cps, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoints: %w", err)
	}
	return s.writeAtomic(s.CheckpointPath(exchange, symbol), data)
}
