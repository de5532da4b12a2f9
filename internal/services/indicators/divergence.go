package indicators

import "CoinSim/internal/domain/models"

// DivergenceResult reports a price/RSI divergence over a trailing window.
type DivergenceResult struct {
	Detected bool
	Signal   Signal // Buy = bullish divergence, Sell = bearish
}

// Divergence compares the price trend and the RSI trend over the last
// window candles (default 10). Price falling while RSI rises is a bullish
// divergence; price rising while RSI falls is bearish. Returns no
// divergence when fewer than window+RSI warmup candles exist.
func Divergence(candles []models.Candle, rsiPeriod, window int) DivergenceResult {
	if window <= 0 {
		window = 10
	}
	if len(candles) < rsiPeriod+1+window {
		return DivergenceResult{Signal: Neutral}
	}

	closes := Closes(candles)
	priceNow := closes[len(closes)-1]
	priceThen := closes[len(closes)-1-window]

	rsiNow := RSI(closes, rsiPeriod)
	rsiThen := RSI(closes[:len(closes)-window], rsiPeriod)

	priceUp := priceNow > priceThen
	priceDown := priceNow < priceThen
	rsiUp := rsiNow > rsiThen
	rsiDown := rsiNow < rsiThen

	switch {
	case priceDown && rsiUp:
		return DivergenceResult{Detected: true, Signal: Buy}
	case priceUp && rsiDown:
		return DivergenceResult{Detected: true, Signal: Sell}
	default:
		return DivergenceResult{Signal: Neutral}
	}
}
