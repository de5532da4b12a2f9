package indicators

import (
	"math"

	"CoinSim/internal/domain/models"
)

// SwingPoints finds local maxima and minima: a candle is a swing high (low)
// when its high (low) dominates every candle within lookback bars on both
// sides. Results are ordered oldest to newest.
func SwingPoints(candles []models.Candle, lookback int) (highs, lows []float64) {
	highs = make([]float64, 0)
	lows = make([]float64, 0)
	if lookback <= 0 {
		lookback = 5
	}

	for i := lookback; i < len(candles)-lookback; i++ {
		isHigh := true
		isLow := true
		for j := i - lookback; j <= i+lookback; j++ {
			if j == i {
				continue
			}
			if candles[j].High > candles[i].High {
				isHigh = false
			}
			if candles[j].Low < candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, candles[i].High)
		}
		if isLow {
			lows = append(lows, candles[i].Low)
		}
	}
	return highs, lows
}

// NearestAbove returns the smallest level strictly above price, or 0.
func NearestAbove(price float64, levels []float64) float64 {
	nearest := 0.0
	minDiff := math.MaxFloat64
	for _, level := range levels {
		if level > price && level-price < minDiff {
			minDiff = level - price
			nearest = level
		}
	}
	return nearest
}

// NearestBelow returns the largest level strictly below price, or 0.
func NearestBelow(price float64, levels []float64) float64 {
	nearest := 0.0
	minDiff := math.MaxFloat64
	for _, level := range levels {
		if level < price && price-level < minDiff {
			minDiff = price - level
			nearest = level
		}
	}
	return nearest
}

// LevelsResult holds the nearest support and resistance around a price.
type LevelsResult struct {
	Support    float64 // nearest swing low below price, 0 if none
	Resistance float64 // nearest swing high above price, 0 if none
}

// SupportResistance locates the nearest swing low below and swing high
// above the latest close, using a 5-candle swing window.
func SupportResistance(candles []models.Candle) LevelsResult {
	if len(candles) == 0 {
		return LevelsResult{}
	}
	price := candles[len(candles)-1].Close
	highs, lows := SwingPoints(candles, 5)
	return LevelsResult{
		Support:    NearestBelow(price, lows),
		Resistance: NearestAbove(price, highs),
	}
}

// StructurePattern classifies the swing sequence of a market.
type StructurePattern string

const (
	StructureUptrend   StructurePattern = "HH/HL"
	StructureDowntrend StructurePattern = "LH/LL"
	StructureRanging   StructurePattern = "ranging"
	StructureUnknown   StructurePattern = "unknown"
)

// StructureResult describes swing structure around the latest price.
type StructureResult struct {
	Pattern           StructurePattern
	BreakoutPct       float64 // distance to nearest resistance, percent
	BreakdownPct      float64 // distance to nearest support, percent
	NearestSupport    float64
	NearestResistance float64
}

// MarketStructure compares the last two swing highs and lows: higher highs
// with higher lows is an uptrend, lower highs with lower lows a downtrend,
// anything else ranging. Needs at least 30 candles, otherwise unknown.
func MarketStructure(candles []models.Candle) StructureResult {
	res := StructureResult{Pattern: StructureUnknown}
	if len(candles) < 30 {
		return res
	}

	highs, lows := SwingPoints(candles, 5)
	if len(highs) >= 2 && len(lows) >= 2 {
		lastHigh, prevHigh := highs[len(highs)-1], highs[len(highs)-2]
		lastLow, prevLow := lows[len(lows)-1], lows[len(lows)-2]
		switch {
		case lastHigh > prevHigh && lastLow > prevLow:
			res.Pattern = StructureUptrend
		case lastHigh < prevHigh && lastLow < prevLow:
			res.Pattern = StructureDowntrend
		default:
			res.Pattern = StructureRanging
		}
	}

	price := candles[len(candles)-1].Close
	res.NearestSupport = NearestBelow(price, lows)
	res.NearestResistance = NearestAbove(price, highs)
	if res.NearestResistance > 0 && price > 0 {
		res.BreakoutPct = (res.NearestResistance - price) / price * 100
	}
	if res.NearestSupport > 0 && price > 0 {
		res.BreakdownPct = (price - res.NearestSupport) / price * 100
	}
	return res
}
