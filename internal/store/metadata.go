package store

import (
	"encoding/json"
	"fmt"
	"os"

	"BarVault/internal/market"
)

const metadataFile = "metadata"

// MetadataPath returns the JSON location of an instrument's metadata blob.
func (s *FileStore) MetadataPath(exchange, symbol string) string {
	return s.Path(exchange, symbol, metadataFile, "json")
}

// HasMetadata reports whether metadata was already fetched for a symbol.
func (s *FileStore) HasMetadata(exchange, symbol string) bool {
	return s.Exists(s.MetadataPath(exchange, symbol))
}

// ReadMetadata loads an instrument's stored metadata, nil when absent.
func (s *FileStore) ReadMetadata(exchange, symbol string) (*market.Metadata, error) {
	data, err := os.ReadFile(s.MetadataPath(exchange, symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta market.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &meta, nil
}

// WriteMetadata persists an instrument's metadata atomically.
func (s *FileStore) WriteMetadata(exchange, symbol string, meta *market.Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return s.writeAtomic(s.MetadataPath(exchange, symbol), data)
}
