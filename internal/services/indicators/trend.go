package indicators

import (
	"math"

	"CoinSim/internal/domain/models"
)

// EMA computes the exponential moving average with multiplier 2/(period+1),
// seeded with the simple average of the first period values. Returns 0 when
// fewer than period values exist; callers treat 0 as "no reading".
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}

	multiplier := 2.0 / float64(period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
	}
	return ema
}

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes EMA12 - EMA26 over prices. The signal line is the EMA9 of
// the MACD series itself and the histogram their difference. Returns zeros
// when fewer than 26 prices exist; the signal stays 0 until the MACD series
// is at least 9 long.
func MACD(prices []float64) MACDResult {
	if len(prices) < 26 {
		return MACDResult{}
	}

	series := make([]float64, 0, len(prices)-25)
	for i := 25; i < len(prices); i++ {
		window := prices[:i+1]
		series = append(series, EMA(window, 12)-EMA(window, 26))
	}

	macd := series[len(series)-1]
	signal := EMA(series, 9)
	return MACDResult{MACD: macd, Signal: signal, Histogram: macd - signal}
}

// ADXResult holds the trend-strength reading and both directional indices.
type ADXResult struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// ADX computes directional movement ratios over the trailing period window.
// The single-window DX is reported directly as ADX without Wilder's
// smoothing pass, which diverges from the textbook indicator on purpose.
// Returns the neutral {25, 50, 50} when fewer than 2*period candles exist.
// ADX above 25 marks a trend, above 40 a strong one.
func ADX(candles []models.Candle, period int) ADXResult {
	if period <= 0 || len(candles) < period*2 {
		return ADXResult{ADX: 25, PlusDI: 50, MinusDI: 50}
	}

	var plusDMSum, minusDMSum, trSum float64
	for i := len(candles) - period; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		if upMove > downMove && upMove > 0 {
			plusDMSum += upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDMSum += downMove
		}
		trSum += trueRange(candles[i], candles[i-1])
	}

	var res ADXResult
	if trSum > 0 {
		res.PlusDI = plusDMSum / trSum * 100
		res.MinusDI = minusDMSum / trSum * 100
	}
	if res.PlusDI+res.MinusDI > 0 {
		res.ADX = math.Abs(res.PlusDI-res.MinusDI) / (res.PlusDI + res.MinusDI) * 100
	}
	return res
}

// PSARResult holds the parabolic stop-and-reverse level and trend state.
type PSARResult struct {
	Value   float64
	Uptrend bool
	Signal  Signal
}

// ParabolicSAR runs the standard SAR recursion (acceleration 0.02, step
// 0.02, cap 0.2) over the whole series. The signal is buy or sell only when
// the trend flipped on the most recent candle, otherwise hold. Returns hold
// with a zero level when fewer than 2 candles exist.
func ParabolicSAR(candles []models.Candle) PSARResult {
	if len(candles) < 2 {
		return PSARResult{Signal: Hold}
	}

	const afStep, afMax = 0.02, 0.2

	uptrend := candles[1].Close >= candles[0].Close
	sar := candles[0].Low
	ep := candles[0].High
	if !uptrend {
		sar = candles[0].High
		ep = candles[0].Low
	}
	af := afStep
	prevTrend := uptrend

	for i := 1; i < len(candles); i++ {
		prevTrend = uptrend
		sar += af * (ep - sar)

		if uptrend {
			if sar > candles[i].Low {
				uptrend = false
				sar = ep
				ep = candles[i].Low
				af = afStep
			} else if candles[i].High > ep {
				ep = candles[i].High
				af = math.Min(af+afStep, afMax)
			}
		} else {
			if sar < candles[i].High {
				uptrend = true
				sar = ep
				ep = candles[i].High
				af = afStep
			} else if candles[i].Low < ep {
				ep = candles[i].Low
				af = math.Min(af+afStep, afMax)
			}
		}
	}

	sig := Hold
	if uptrend != prevTrend {
		if uptrend {
			sig = Buy
		} else {
			sig = Sell
		}
	}
	return PSARResult{Value: sar, Uptrend: uptrend, Signal: sig}
}

// SupertrendResult holds the trailing stop level and trend state.
type SupertrendResult struct {
	Value   float64
	Uptrend bool
	Signal  Signal
}

// Supertrend computes ATR bands around the candle midpoint with the usual
// band ratcheting. The signal is buy or sell only on a trend flip at the
// most recent candle, otherwise hold. Returns hold with a zero level when
// fewer than period+1 candles exist.
func Supertrend(candles []models.Candle, period int, multiplier float64) SupertrendResult {
	n := len(candles)
	if period <= 0 || n < period+1 {
		return SupertrendResult{Signal: Hold}
	}

	upper := make([]float64, n)
	lower := make([]float64, n)
	uptrend := make([]bool, n)

	for i := period; i < n; i++ {
		atr := ATR(candles[:i+1], period)
		mid := (candles[i].High + candles[i].Low) / 2
		basicUpper := mid + multiplier*atr
		basicLower := mid - multiplier*atr

		if i == period {
			upper[i] = basicUpper
			lower[i] = basicLower
			uptrend[i] = candles[i].Close > mid
			continue
		}

		upper[i] = basicUpper
		if basicUpper > upper[i-1] && candles[i-1].Close <= upper[i-1] {
			upper[i] = upper[i-1]
		}
		lower[i] = basicLower
		if basicLower < lower[i-1] && candles[i-1].Close >= lower[i-1] {
			lower[i] = lower[i-1]
		}

		switch {
		case candles[i].Close > upper[i]:
			uptrend[i] = true
		case candles[i].Close < lower[i]:
			uptrend[i] = false
		default:
			uptrend[i] = uptrend[i-1]
		}
	}

	last := n - 1
	res := SupertrendResult{Uptrend: uptrend[last], Signal: Hold}
	if uptrend[last] {
		res.Value = lower[last]
	} else {
		res.Value = upper[last]
	}
	if last > period && uptrend[last] != uptrend[last-1] {
		if uptrend[last] {
			res.Signal = Buy
		} else {
			res.Signal = Sell
		}
	}
	return res
}
