package analytics

import (
	"fmt"

	"CoinSim/internal/domain/models"
	"CoinSim/internal/services/indicators"
)

// Indicator convention thresholds, per each indicator's documented contract.
const (
	stochOverbought    = 80.0
	stochOversold      = 20.0
	cciLean            = 100.0
	cciExtreme         = 200.0
	williamsOverbought = -20.0
	williamsOversold   = -80.0
	rocStrong          = 5.0
	rocWeak            = 1.0
	mfiOverbought      = 80.0
	mfiOversold        = 20.0
	bollNearBand       = 0.2
	overExtendedRSI    = 75.0
)

// reading is one pass of the indicator battery over a candle window.
type reading struct {
	rsi        float64
	macd       indicators.MACDResult
	emaFast    float64
	emaSlow    float64
	boll       indicators.BollingerResult
	stoch      indicators.StochasticResult
	cci        float64
	williams   float64
	roc        float64
	mfi        float64
	atr        float64
	adx        indicators.ADXResult
	psar       indicators.PSARResult
	supertrend indicators.SupertrendResult
	obv        indicators.OBVResult
	vwap       float64
	levels     indicators.LevelsResult
	structure  indicators.StructureResult
	pattern    indicators.PatternResult
	divergence indicators.DivergenceResult
	lastVolume float64
	avgVolume  float64
}

func (c Config) read(candles []models.Candle) reading {
	closes := indicators.Closes(candles)
	r := reading{
		rsi:        indicators.RSI(closes, c.RSIPeriod),
		macd:       indicators.MACD(closes),
		emaFast:    indicators.EMA(closes, c.EMAFast),
		emaSlow:    indicators.EMA(closes, c.EMASlow),
		boll:       indicators.BollingerBands(closes, c.BollingerPeriod, c.BollingerK),
		stoch:      indicators.Stochastic(candles, c.StochKPeriod, c.StochDPeriod),
		cci:        indicators.CCI(candles, c.CCIPeriod),
		williams:   indicators.WilliamsR(candles, c.WilliamsPeriod),
		roc:        indicators.ROC(closes, c.ROCPeriod),
		mfi:        indicators.MFI(candles, c.MFIPeriod),
		atr:        indicators.ATR(candles, c.ATRPeriod),
		adx:        indicators.ADX(candles, c.ADXPeriod),
		psar:       indicators.ParabolicSAR(candles),
		supertrend: indicators.Supertrend(candles, c.SupertrendPeriod, c.SupertrendMult),
		obv:        indicators.OBV(candles, c.OBVWindow),
		vwap:       indicators.VWAP(candles),
		levels:     indicators.SupportResistance(candles),
		structure:  indicators.MarketStructure(candles),
		pattern:    indicators.DetectPattern(candles),
		divergence: indicators.Divergence(candles, c.RSIPeriod, c.DivergenceWindow),
		lastVolume: candles[len(candles)-1].Volume,
	}

	vols := make([]float64, len(candles))
	for i := range candles {
		vols[i] = candles[i].Volume
	}
	r.avgVolume = indicators.SMA(vols, min(20, len(vols)))
	return r
}

// tally accumulates weighted votes and their narratives. Confirmation and
// warning order follows battery order so output is reproducible.
type tally struct {
	bullish       int
	bearish       int
	confirmations []string
	warnings      []string
}

func (t *tally) bull(weight int, format string, args ...any) {
	t.bullish += weight
	t.confirmations = append(t.confirmations, fmt.Sprintf(format, args...))
}

func (t *tally) bear(weight int, format string, args ...any) {
	t.bearish += weight
	t.confirmations = append(t.confirmations, fmt.Sprintf(format, args...))
}

func (t *tally) warn(format string, args ...any) {
	t.warnings = append(t.warnings, fmt.Sprintf(format, args...))
}

// vote runs the weighted battery over one reading.
func (c Config) vote(price float64, r reading) *tally {
	t := &tally{}
	w := c.Weights

	switch {
	case r.rsi < c.RSIOversold:
		t.bull(w.RSIExtreme, "RSI oversold at %.1f", r.rsi)
	case r.rsi < c.RSILeanOversold:
		t.bull(w.RSILean, "RSI approaching oversold at %.1f", r.rsi)
	case r.rsi > c.RSIOverbought:
		t.bear(w.RSIExtreme, "RSI overbought at %.1f", r.rsi)
	case r.rsi > c.RSILeanOverbought:
		t.bear(w.RSILean, "RSI approaching overbought at %.1f", r.rsi)
	case r.rsi >= c.RSINeutralLow && r.rsi <= c.RSINeutralHigh:
		t.warn("RSI in the neutral band at %.1f", r.rsi)
	}

	switch {
	case r.macd.MACD > r.macd.Signal:
		t.bull(w.MACD, "MACD above its signal line")
	case r.macd.MACD < r.macd.Signal:
		t.bear(w.MACD, "MACD below its signal line")
	}

	// A zero EMA means not enough history for that leg.
	switch {
	case r.emaFast > 0 && r.emaSlow > 0 && price > r.emaFast && r.emaFast > r.emaSlow:
		t.bull(w.EMAAligned, "price above EMA%d above EMA%d", c.EMAFast, c.EMASlow)
	case r.emaFast > 0 && r.emaSlow > 0 && price < r.emaFast && r.emaFast < r.emaSlow:
		t.bear(w.EMAAligned, "price below EMA%d below EMA%d", c.EMAFast, c.EMASlow)
	case r.emaFast > 0 && price > r.emaFast:
		t.bull(w.EMAPartial, "price above EMA%d", c.EMAFast)
	case r.emaFast > 0 && price < r.emaFast:
		t.bear(w.EMAPartial, "price below EMA%d", c.EMAFast)
	}

	switch {
	case r.boll.PercentB < 0:
		t.bull(w.BollingerBreak, "price below the lower Bollinger band")
	case r.boll.PercentB < bollNearBand:
		t.bull(w.BollingerNear, "price near the lower Bollinger band")
	case r.boll.PercentB > 1:
		t.bear(w.BollingerBreak, "price above the upper Bollinger band")
	case r.boll.PercentB > 1-bollNearBand:
		t.bear(w.BollingerNear, "price near the upper Bollinger band")
	}

	switch {
	case r.stoch.K < stochOversold && r.stoch.D < stochOversold:
		t.bull(w.StochBoth, "stochastic oversold, %%K %.1f %%D %.1f", r.stoch.K, r.stoch.D)
	case r.stoch.K < stochOversold:
		t.bull(w.StochSingle, "stochastic %%K oversold at %.1f", r.stoch.K)
	case r.stoch.K > stochOverbought && r.stoch.D > stochOverbought:
		t.bear(w.StochBoth, "stochastic overbought, %%K %.1f %%D %.1f", r.stoch.K, r.stoch.D)
	case r.stoch.K > stochOverbought:
		t.bear(w.StochSingle, "stochastic %%K overbought at %.1f", r.stoch.K)
	}

	switch {
	case r.cci <= -cciExtreme:
		t.bull(w.CCIExtreme, "CCI deeply oversold at %.0f", r.cci)
	case r.cci <= -cciLean:
		t.bull(w.CCILean, "CCI oversold at %.0f", r.cci)
	case r.cci >= cciExtreme:
		t.bear(w.CCIExtreme, "CCI deeply overbought at %.0f", r.cci)
	case r.cci >= cciLean:
		t.bear(w.CCILean, "CCI overbought at %.0f", r.cci)
	}

	switch {
	case r.williams < williamsOversold:
		t.bull(w.Williams, "Williams %%R oversold at %.1f", r.williams)
	case r.williams > williamsOverbought:
		t.bear(w.Williams, "Williams %%R overbought at %.1f", r.williams)
	}

	switch {
	case r.roc >= rocStrong:
		t.bull(w.ROCStrong, "momentum strongly positive, ROC %.1f%%", r.roc)
	case r.roc >= rocWeak:
		t.bull(w.ROCWeak, "momentum positive, ROC %.1f%%", r.roc)
	case r.roc <= -rocStrong:
		t.bear(w.ROCStrong, "momentum strongly negative, ROC %.1f%%", r.roc)
	case r.roc <= -rocWeak:
		t.bear(w.ROCWeak, "momentum negative, ROC %.1f%%", r.roc)
	}

	switch {
	case r.mfi < mfiOversold:
		t.bull(w.MFI, "money flow oversold at %.1f", r.mfi)
	case r.mfi > mfiOverbought:
		t.bear(w.MFI, "money flow overbought at %.1f", r.mfi)
	}

	switch {
	case r.adx.ADX > c.StrongTrendADX && r.adx.PlusDI > r.adx.MinusDI:
		t.bull(w.ADXStrong, "strong uptrend, ADX %.0f", r.adx.ADX)
	case r.adx.ADX > c.TrendADX && r.adx.PlusDI > r.adx.MinusDI:
		t.bull(w.ADXLean, "uptrend forming, ADX %.0f", r.adx.ADX)
	case r.adx.ADX > c.StrongTrendADX && r.adx.MinusDI > r.adx.PlusDI:
		t.bear(w.ADXStrong, "strong downtrend, ADX %.0f", r.adx.ADX)
	case r.adx.ADX > c.TrendADX && r.adx.MinusDI > r.adx.PlusDI:
		t.bear(w.ADXLean, "downtrend forming, ADX %.0f", r.adx.ADX)
	case r.adx.ADX < c.WeakTrendADX:
		t.warn("weak trend, ADX %.0f", r.adx.ADX)
	}

	switch r.psar.Signal {
	case indicators.Buy:
		t.bull(w.TrendFlip, "parabolic SAR flipped bullish")
	case indicators.Sell:
		t.bear(w.TrendFlip, "parabolic SAR flipped bearish")
	}

	switch r.supertrend.Signal {
	case indicators.Buy:
		t.bull(w.TrendFlip, "supertrend flipped bullish")
	case indicators.Sell:
		t.bear(w.TrendFlip, "supertrend flipped bearish")
	}

	switch r.obv.Trend {
	case indicators.Buy:
		t.bull(w.OBV, "on-balance volume accumulating")
	case indicators.Sell:
		t.bear(w.OBV, "on-balance volume distributing")
	}

	if r.vwap > 0 {
		switch {
		case price > r.vwap:
			t.bull(w.VWAP, "price above VWAP")
		case price < r.vwap:
			t.bear(w.VWAP, "price below VWAP")
		}
	}

	switch r.pattern.Pattern {
	case indicators.PatternBullishEngulfing:
		t.bull(w.Engulfing, "bullish engulfing pattern")
	case indicators.PatternBearishEngulfing:
		t.bear(w.Engulfing, "bearish engulfing pattern")
	case indicators.PatternHammer:
		t.bull(w.WickReversal, "hammer candle")
	case indicators.PatternShootingStar:
		t.bear(w.WickReversal, "shooting star candle")
	case indicators.PatternDoji:
		t.warn("indecision doji on the last candle")
	}

	switch r.structure.Pattern {
	case indicators.StructureUptrend:
		t.bull(w.Structure, "higher highs and higher lows")
	case indicators.StructureDowntrend:
		t.bear(w.Structure, "lower highs and lower lows")
	}

	switch r.divergence.Signal {
	case indicators.Buy:
		t.bull(w.Divergence, "bullish RSI divergence")
	case indicators.Sell:
		t.bear(w.Divergence, "bearish RSI divergence")
	}

	// Contextual warnings read the vote totals.
	if r.avgVolume > 0 && r.lastVolume < c.LowVolumeRatio*r.avgVolume {
		t.warn("volume well below its recent average")
	}
	net := t.bullish - t.bearish
	if net > 0 && r.structure.Pattern == indicators.StructureDowntrend {
		t.warn("buy reading against a falling structure")
	}
	if net < 0 && r.structure.Pattern == indicators.StructureUptrend {
		t.warn("sell reading against a rising structure")
	}
	if net > 0 && r.rsi > overExtendedRSI {
		t.warn("overextended move, RSI %.1f", r.rsi)
	}
	if net < 0 && r.rsi < 100-overExtendedRSI {
		t.warn("overextended move, RSI %.1f", r.rsi)
	}
	return t
}
