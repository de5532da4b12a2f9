package indicators

import (
	"math"

	"CoinSim/internal/domain/models"
)

// RSI computes the Wilder-smoothed relative strength index over prices.
// The first period deltas seed the averages, later deltas are folded in with
// (prev*(period-1)+cur)/period. Returns 50 when fewer than period+1 prices
// exist and 100 when the average loss is zero.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}

	gains := 0.0
	losses := 0.0
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain := 0.0
		loss := 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// RSISeries computes the RSI at every index of prices, using the same
// Wilder smoothing as RSI. Entries before period+1 prices are 50.
func RSISeries(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	for i := range prices {
		out[i] = RSI(prices[:i+1], period)
	}
	return out
}

// StochasticResult holds the %K/%D oscillator pair.
type StochasticResult struct {
	K      float64
	D      float64
	Signal Signal
}

// Stochastic computes %K from the close position inside the rolling
// high/low range and %D as the SMA of the last dPeriod %K values.
// Neutral 50/50 when fewer than kPeriod candles exist or the range is flat.
func Stochastic(candles []models.Candle, kPeriod, dPeriod int) StochasticResult {
	if kPeriod <= 0 || len(candles) < kPeriod {
		return StochasticResult{K: 50, D: 50, Signal: Neutral}
	}

	kAt := func(end int) float64 {
		window := candles[:end+1]
		high := HighestHigh(window, kPeriod)
		low := LowestLow(window, kPeriod)
		if high == low {
			return 50
		}
		return (window[len(window)-1].Close - low) / (high - low) * 100
	}

	k := kAt(len(candles) - 1)

	dSum := 0.0
	dCount := 0
	for i := 0; i < dPeriod && len(candles)-1-i >= kPeriod-1; i++ {
		dSum += kAt(len(candles) - 1 - i)
		dCount++
	}
	d := k
	if dCount > 0 {
		d = dSum / float64(dCount)
	}

	sig := Neutral
	switch {
	case k > 80 && d > 80:
		sig = Sell // overbought
	case k < 20 && d < 20:
		sig = Buy // oversold
	}
	return StochasticResult{K: k, D: d, Signal: sig}
}

// CCI computes the commodity channel index over typical prices:
// (tp - SMA(tp)) / (0.015 * meanDeviation). Returns 0 when fewer than
// period candles exist or the mean deviation is zero. Thresholds are +-100.
func CCI(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}

	tps := make([]float64, period)
	for i := 0; i < period; i++ {
		tps[i] = TypicalPrice(candles[len(candles)-period+i])
	}
	sum := 0.0
	for _, tp := range tps {
		sum += tp
	}
	mean := sum / float64(period)

	meanDev := 0.0
	for _, tp := range tps {
		meanDev += math.Abs(tp - mean)
	}
	meanDev /= float64(period)
	if meanDev == 0 {
		return 0
	}

	return (tps[period-1] - mean) / (0.015 * meanDev)
}

// WilliamsR computes Williams %R in the range 0..-100. Overbought above
// -20, oversold below -80. Returns -50 when fewer than period candles exist
// or the range is flat.
func WilliamsR(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return -50
	}
	high := HighestHigh(candles, period)
	low := LowestLow(candles, period)
	if high == low {
		return -50
	}
	return (high - candles[len(candles)-1].Close) / (high - low) * -100
}

// ROC computes the rate of change as a percentage versus period bars back.
// Returns 0 when fewer than period+1 prices exist or the base price is zero.
// Magnitude bands: above 5 strong, above 1 weak.
func ROC(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 0
	}
	base := prices[len(prices)-1-period]
	if base == 0 {
		return 0
	}
	return (prices[len(prices)-1] - base) / base * 100
}

// MFI computes the money flow index, a volume-weighted RSI analogue over
// typical price * volume. Returns 50 when fewer than period+1 candles exist
// and 100 when there is no negative flow. Thresholds are 80/20.
func MFI(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 50
	}

	posFlow := 0.0
	negFlow := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		tp := TypicalPrice(candles[i])
		prevTP := TypicalPrice(candles[i-1])
		flow := tp * candles[i].Volume
		if tp > prevTP {
			posFlow += flow
		} else if tp < prevTP {
			negFlow += flow
		}
	}

	if negFlow == 0 {
		return 100
	}
	ratio := posFlow / negFlow
	return 100 - (100 / (1 + ratio))
}
