// Package indicators provides pure, stateless technical indicator functions
// over price and candle windows. Every function defines a minimum-data
// policy and returns a documented neutral value below it instead of failing,
// so signal computation always produces an answer while history accumulates.
package indicators

import (
	"math"

	"CoinSim/internal/domain/models"
)

// Signal is a coarse directional reading emitted by indicators.
type Signal string

const (
	Buy     Signal = "buy"
	Sell    Signal = "sell"
	Hold    Signal = "hold"
	Neutral Signal = "neutral"
)

// Closes extracts the close series from candles, oldest to newest.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

// SMA computes the simple moving average of the last period values.
// Returns 0 if fewer than period values exist.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// StdDev computes the population standard deviation of the last period
// values around their SMA. Returns 0 if fewer than period values exist.
func StdDev(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	mean := SMA(values, period)
	variance := 0.0
	for i := len(values) - period; i < len(values); i++ {
		diff := values[i] - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(period))
}

// TypicalPrice is (high + low + close) / 3 for one candle.
func TypicalPrice(c models.Candle) float64 {
	return (c.High + c.Low + c.Close) / 3
}

// HighestHigh returns the maximum high over the last period candles.
// Returns 0 if no candles exist.
func HighestHigh(candles []models.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if period > len(candles) {
		period = len(candles)
	}
	highest := candles[len(candles)-period].High
	for i := len(candles) - period + 1; i < len(candles); i++ {
		if candles[i].High > highest {
			highest = candles[i].High
		}
	}
	return highest
}

// LowestLow returns the minimum low over the last period candles.
// Returns 0 if no candles exist.
func LowestLow(candles []models.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if period > len(candles) {
		period = len(candles)
	}
	lowest := candles[len(candles)-period].Low
	for i := len(candles) - period + 1; i < len(candles); i++ {
		if candles[i].Low < lowest {
			lowest = candles[i].Low
		}
	}
	return lowest
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(cur, prev models.Candle) float64 {
	return math.Max(cur.High-cur.Low,
		math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
}
