package indicators

import "CoinSim/internal/domain/models"

// OBVResult holds the cumulative on-balance volume and its trailing trend.
type OBVResult struct {
	Value float64
	Trend Signal // Buy = accumulation, Sell = distribution
}

// OBV accumulates signed volume: volume is added on up closes and
// subtracted on down closes. The trend compares the latest OBV against its
// value window candles back (default 10) to classify accumulation versus
// distribution. Returns a neutral zero reading when fewer than 2 candles
// exist.
func OBV(candles []models.Candle, window int) OBVResult {
	if len(candles) < 2 {
		return OBVResult{Trend: Neutral}
	}
	if window <= 0 {
		window = 10
	}

	series := make([]float64, len(candles))
	for i := 1; i < len(candles); i++ {
		series[i] = series[i-1]
		switch {
		case candles[i].Close > candles[i-1].Close:
			series[i] += candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			series[i] -= candles[i].Volume
		}
	}

	res := OBVResult{Value: series[len(series)-1], Trend: Neutral}
	if len(series) > window {
		prev := series[len(series)-1-window]
		switch {
		case res.Value > prev:
			res.Trend = Buy
		case res.Value < prev:
			res.Trend = Sell
		}
	}
	return res
}

// VWAP computes the volume-weighted average price over the whole window:
// sum(typicalPrice*volume) / sum(volume). Returns 0 when no volume exists;
// callers treat 0 as "no reading". Price above VWAP is bullish.
func VWAP(candles []models.Candle) float64 {
	var pvSum, volSum float64
	for i := range candles {
		pvSum += TypicalPrice(candles[i]) * candles[i].Volume
		volSum += candles[i].Volume
	}
	if volSum == 0 {
		return 0
	}
	return pvSum / volSum
}
