package service

import "CoinSim/internal/domain/models"

// SignalAnalyzer turns market data into a classified trading signal.
// Implementations are pure functions of their inputs: no portfolio or
// position state, no I/O. They always return a signal; insufficient data
// yields a neutral one with an explicit warning, never an error.
type SignalAnalyzer interface {
	// Analyze runs the full indicator battery over candle history.
	Analyze(symbol string, price float64, candles []models.Candle) *models.Signal

	// AnalyzeSnapshot runs the fast profile over a 24h market snapshot,
	// used whenever candle history is missing or too short.
	AnalyzeSnapshot(asset models.Asset) *models.Signal
}
