package provider

import (
	"context"
	"time"

	"BarVault/internal/market"
)

// Provider defines the interface for fetching raw bars and metadata for a
// single instrument. An empty result for a valid range is a normal,
// non-error outcome distinct from a transport or auth failure.
type Provider interface {
	FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Bar, error)
	FetchFullHistory(ctx context.Context, symbol, interval string) ([]market.Bar, error)
	FetchMetadata(ctx context.Context, symbol string) (*market.Metadata, error)
	Name() string
}
