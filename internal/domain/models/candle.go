package models

import "time"

// Candle is one OHLCV bucket for a symbol. Sequences are always ordered
// oldest to newest. Invariants: High >= max(Open, Close),
// Low <= min(Open, Close), Volume >= 0. Feed adapters enforce these before
// candles reach the core.
type Candle struct {
	Symbol    string
	Timeframe string
	Bucket    time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Tick is a single trade print from the exchange stream.
type Tick struct {
	Symbol string
	Price  float64
	Qty    float64
	At     time.Time
}
