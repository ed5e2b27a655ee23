package market

import "time"

// Bar represents a single observation in a price series.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Metadata holds provider-supplied descriptive fields for an instrument.
type Metadata struct {
	Symbol             string    `json:"symbol"`
	Currency           string    `json:"currency"`
	ExchangeName       string    `json:"exchange_name"`
	FullExchangeName   string    `json:"full_exchange_name"`
	InstrumentType     string    `json:"instrument_type"`
	RegularMarketPrice float64   `json:"regular_market_price"`
	FetchedAt          time.Time `json:"fetched_at"`
}
