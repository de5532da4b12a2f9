package indicators

import (
	"math"
	"time"

	"CoinSim/internal/domain/models"
)

// ATR computes the average true range over the trailing period window,
// where true range is max(high-low, |high-prevClose|, |low-prevClose|).
// Returns 0 when fewer than period+1 candles exist.
func ATR(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}

	trSum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		trSum += trueRange(candles[i], candles[i-1])
	}
	return trSum / float64(period)
}

// BollingerResult holds the band levels plus %B and bandwidth.
type BollingerResult struct {
	Middle    float64
	Upper     float64
	Lower     float64
	PercentB  float64
	Bandwidth float64
}

// BollingerBands computes middle = SMA(period) and bands at +-k standard
// deviations. PercentB is the position of price inside the band (0 at the
// lower band, 1 at the upper, may exceed either) and Bandwidth the band
// spread relative to the middle. Returns zeros with PercentB 0.5 when fewer
// than period prices exist or the band is flat.
func BollingerBands(prices []float64, period int, k float64) BollingerResult {
	if period <= 0 || len(prices) < period {
		return BollingerResult{PercentB: 0.5}
	}

	middle := SMA(prices, period)
	sd := StdDev(prices, period)
	upper := middle + k*sd
	lower := middle - k*sd

	res := BollingerResult{Middle: middle, Upper: upper, Lower: lower, PercentB: 0.5}
	if upper != lower {
		res.PercentB = (prices[len(prices)-1] - lower) / (upper - lower)
	}
	if middle != 0 {
		res.Bandwidth = (upper - lower) / middle
	}
	return res
}

// LogReturns computes ln(p_t / p_{t-1}) over consecutive prices. Pairs with
// a non-positive price on either side contribute 0. Returns nil when fewer
// than two prices exist.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		cur := prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// HistoricalVolatility computes annualized close-to-close volatility: the
// sample standard deviation of the trailing window of log returns scaled by
// sqrt(barsPerYear). Returns 0 when window < 2 or fewer than window+1
// prices exist.
func HistoricalVolatility(prices []float64, window int, barsPerYear float64) float64 {
	rets := LogReturns(prices)
	if window < 2 || len(rets) < window {
		return 0
	}

	sum := 0.0
	sum2 := 0.0
	for i := len(rets) - window; i < len(rets); i++ {
		r := rets[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear converts a bar duration to the approximate number of bars in
// a 365-day year, for annualizing bar-level statistics. Returns 0 for a
// non-positive duration.
func BarsPerYear(bar time.Duration) float64 {
	if bar <= 0 {
		return 0
	}
	return float64(365*24*time.Hour) / float64(bar)
}
