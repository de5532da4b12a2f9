package models

import "time"

// Asset is a 24h market snapshot for one tradable asset, as served by the
// REST feed. It carries enough for the fast signal profile when no candle
// history exists yet.
type Asset struct {
	ID           string
	Symbol       string
	Name         string
	CurrentPrice float64
	ChangePct24h float64
	High24h      float64
	Low24h       float64
	Volume24h    float64
	UpdatedAt    time.Time
}
