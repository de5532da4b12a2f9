package indicators

import "CoinSim/internal/domain/models"

// Pattern identifies a candlestick pattern on the most recent 1-2 candles.
type Pattern string

const (
	PatternNone             Pattern = "none"
	PatternDoji             Pattern = "doji"
	PatternHammer           Pattern = "hammer"
	PatternShootingStar     Pattern = "shooting-star"
	PatternBullishEngulfing Pattern = "bullish-engulfing"
	PatternBearishEngulfing Pattern = "bearish-engulfing"
)

// PatternResult is a detected pattern and its directional lean.
type PatternResult struct {
	Pattern Pattern
	Signal  Signal
}

// DetectPattern classifies the most recent candles by body-to-wick ratios:
// engulfing when the current body fully contains the prior body in the
// opposite direction, hammer and shooting-star when the matching wick
// exceeds 2x the body while the opposite wick stays under 30% of it, doji
// when the body is under 10% of the candle range. Engulfing wins over
// single-candle shapes. Returns none when no candles exist.
func DetectPattern(candles []models.Candle) PatternResult {
	if len(candles) == 0 {
		return PatternResult{Pattern: PatternNone, Signal: Neutral}
	}

	cur := candles[len(candles)-1]

	if len(candles) >= 2 {
		prev := candles[len(candles)-2]
		curBull := cur.Close > cur.Open
		curBear := cur.Close < cur.Open
		prevBull := prev.Close > prev.Open
		prevBear := prev.Close < prev.Open

		if curBull && prevBear && cur.Open <= prev.Close && cur.Close >= prev.Open {
			return PatternResult{Pattern: PatternBullishEngulfing, Signal: Buy}
		}
		if curBear && prevBull && cur.Open >= prev.Close && cur.Close <= prev.Open {
			return PatternResult{Pattern: PatternBearishEngulfing, Signal: Sell}
		}
	}

	body := cur.Close - cur.Open
	if body < 0 {
		body = -body
	}
	rng := cur.High - cur.Low
	if rng == 0 {
		return PatternResult{Pattern: PatternDoji, Signal: Neutral}
	}

	upperWick := cur.High - max(cur.Open, cur.Close)
	lowerWick := min(cur.Open, cur.Close) - cur.Low

	if body > 0 {
		if lowerWick > 2*body && upperWick < 0.3*body {
			return PatternResult{Pattern: PatternHammer, Signal: Buy}
		}
		if upperWick > 2*body && lowerWick < 0.3*body {
			return PatternResult{Pattern: PatternShootingStar, Signal: Sell}
		}
	}

	if body < 0.1*rng {
		return PatternResult{Pattern: PatternDoji, Signal: Neutral}
	}

	return PatternResult{Pattern: PatternNone, Signal: Neutral}
}
