package provider

import (
	"context"
	"time"

	"BarVault/internal/market"
)

// MockProvider returns controllable fixed data for development and testing.
type MockProvider struct {
	RangeBars   []market.Bar
	HistoryBars []market.Bar
	Meta        *market.Metadata
	Err         error

	RangeCalls []RangeCall
}

// RangeCall records the arguments of one FetchRange invocation.
type RangeCall struct {
	Symbol   string
	Interval string
	Start    time.Time
	End      time.Time
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) FetchRange(_ context.Context, symbol, interval string, start, end time.Time) ([]market.Bar, error) {
	m.RangeCalls = append(m.RangeCalls, RangeCall{Symbol: symbol, Interval: interval, Start: start, End: end})
	if m.Err != nil {
		return nil, m.Err
	}
	return m.RangeBars, nil
}

func (m *MockProvider) FetchFullHistory(_ context.Context, _, _ string) ([]market.Bar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.HistoryBars, nil
}

func (m *MockProvider) FetchMetadata(_ context.Context, symbol string) (*market.Metadata, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Meta != nil {
		return m.Meta, nil
	}
	return &market.Metadata{Symbol: symbol, Currency: "USD"}, nil
}
