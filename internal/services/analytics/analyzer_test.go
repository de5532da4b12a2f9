package analytics

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"CoinSim/internal/domain/models"
	"CoinSim/internal/services/indicators"
)

func TestAnalyzeInsufficientData(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), WithClock(testClock))

	sig := a.Analyze("BTC", 50000, candlesFromCloses(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	if sig.Type != models.SignalNeutral {
		t.Fatalf("type: got %v, want %v", sig.Type, models.SignalNeutral)
	}
	assertClose(t, "confidence", sig.Confidence, 0, 1e-9)
	assertClose(t, "quality", sig.QualityScore, 0, 1e-9)
	if len(sig.Warnings) != 1 || sig.Warnings[0] != "insufficient data: 10 of 20 candles" {
		t.Errorf("warnings: got %v", sig.Warnings)
	}
	if sig.Probabilities.Sum() != 100 {
		t.Errorf("probabilities sum %d, want 100", sig.Probabilities.Sum())
	}
	if sig.KeyLevels.Entry != 0 {
		t.Errorf("key levels should stay empty, got %+v", sig.KeyLevels)
	}
}

func TestVoteFullyBullishReading(t *testing.T) {
	cfg := DefaultConfig()
	r := reading{
		rsi:        25,
		macd:       indicators.MACDResult{MACD: 1, Signal: 0.5, Histogram: 0.5},
		emaFast:    90,
		emaSlow:    80,
		boll:       indicators.BollingerResult{PercentB: -0.1},
		stoch:      indicators.StochasticResult{K: 15, D: 18},
		cci:        -250,
		williams:   -85,
		roc:        6,
		mfi:        15,
		adx:        indicators.ADXResult{ADX: 45, PlusDI: 30, MinusDI: 10},
		psar:       indicators.PSARResult{Signal: indicators.Buy, Uptrend: true},
		supertrend: indicators.SupertrendResult{Signal: indicators.Buy, Uptrend: true},
		obv:        indicators.OBVResult{Trend: indicators.Buy},
		vwap:       90,
		structure:  indicators.StructureResult{Pattern: indicators.StructureUptrend},
		pattern:    indicators.PatternResult{Pattern: indicators.PatternBullishEngulfing, Signal: indicators.Buy},
		divergence: indicators.DivergenceResult{Detected: true, Signal: indicators.Buy},
		lastVolume: 100,
		avgVolume:  100,
	}

	tl := cfg.vote(100, r)
	if tl.bullish != 29 || tl.bearish != 0 {
		t.Fatalf("votes: got %d/%d, want 29/0", tl.bullish, tl.bearish)
	}
	if len(tl.confirmations) != 17 {
		t.Fatalf("confirmations: got %d entries, want 17: %v", len(tl.confirmations), tl.confirmations)
	}
	if len(tl.warnings) != 0 {
		t.Errorf("warnings: got %v, want none", tl.warnings)
	}
	for _, want := range []string{
		"RSI oversold at 25.0",
		"price above EMA20 above EMA50",
		"strong uptrend, ADX 45",
		"bullish RSI divergence",
	} {
		if !slices.Contains(tl.confirmations, want) {
			t.Errorf("confirmations missing %q: %v", want, tl.confirmations)
		}
	}

	quality := cfg.qualityScore(tl.bullish, len(tl.warnings))
	if got := cfg.classify(tl.bullish-tl.bearish, quality); got != models.SignalExtremeBuy {
		t.Errorf("classification: got %v, want %v", got, models.SignalExtremeBuy)
	}
}

func TestVoteWarningHeavyReading(t *testing.T) {
	cfg := DefaultConfig()
	r := reading{
		rsi:        50,
		stoch:      indicators.StochasticResult{K: 50, D: 50},
		williams:   -50,
		mfi:        50,
		boll:       indicators.BollingerResult{PercentB: 0.5},
		adx:        indicators.ADXResult{ADX: 15, PlusDI: 20, MinusDI: 20},
		pattern:    indicators.PatternResult{Pattern: indicators.PatternDoji},
		structure:  indicators.StructureResult{Pattern: indicators.StructureUptrend},
		lastVolume: 40,
		avgVolume:  100,
	}

	tl := cfg.vote(100, r)
	if tl.bullish != 1 || tl.bearish != 0 {
		t.Fatalf("votes: got %d/%d, want 1/0", tl.bullish, tl.bearish)
	}
	want := []string{
		"RSI in the neutral band at 50.0",
		"weak trend, ADX 15",
		"indecision doji on the last candle",
		"volume well below its recent average",
	}
	if diff := cmp.Diff(want, tl.warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}

	// One vote and four warnings cannot clear any tier.
	quality := cfg.qualityScore(tl.bullish, len(tl.warnings))
	assertClose(t, "quality floors at zero", quality, 0, 1e-9)
	if got := cfg.classify(tl.bullish-tl.bearish, quality); got != models.SignalNeutral {
		t.Errorf("classification: got %v, want %v", got, models.SignalNeutral)
	}
}

func TestVoteCounterTrendWarning(t *testing.T) {
	cfg := DefaultConfig()
	r := reading{
		rsi:        25,
		stoch:      indicators.StochasticResult{K: 50, D: 50},
		williams:   -50,
		mfi:        50,
		boll:       indicators.BollingerResult{PercentB: 0.5},
		adx:        indicators.ADXResult{ADX: 25, PlusDI: 20, MinusDI: 20},
		structure:  indicators.StructureResult{Pattern: indicators.StructureDowntrend},
		lastVolume: 100,
		avgVolume:  100,
	}

	tl := cfg.vote(100, r)
	if tl.bullish != 2 || tl.bearish != 1 {
		t.Fatalf("votes: got %d/%d, want 2/1", tl.bullish, tl.bearish)
	}
	found := false
	for _, w := range tl.warnings {
		if strings.Contains(w, "against a falling structure") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings missing counter-trend caveat: %v", tl.warnings)
	}
}

func TestAnalyzeInvariants(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), WithClock(testClock))

	up := make([]float64, 60)
	down := make([]float64, 60)
	flat := make([]float64, 25)
	recovery := make([]float64, 60)
	for i := range up {
		up[i] = 100 + float64(i)
		down[i] = 160 - float64(i)
	}
	for i := range flat {
		flat[i] = 100
	}
	for i := range recovery {
		if i < 40 {
			recovery[i] = 150 - float64(i)*2
		} else {
			recovery[i] = 70 + float64(i-40)
		}
	}

	series := map[string][]float64{
		"uptrend": up, "downtrend": down, "flat": flat, "recovery": recovery,
	}
	for name, closes := range series {
		t.Run(name, func(t *testing.T) {
			candles := candlesFromCloses(closes...)
			price := closes[len(closes)-1]
			sig := a.Analyze("BTC", price, candles)

			if sig.Probabilities.Sum() != 100 {
				t.Errorf("probabilities sum %d, want 100", sig.Probabilities.Sum())
			}
			if sig.Confidence < 0 || sig.Confidence > 100 {
				t.Errorf("confidence out of range: %v", sig.Confidence)
			}
			if sig.QualityScore < 0 || sig.QualityScore > 100 {
				t.Errorf("quality out of range: %v", sig.QualityScore)
			}
			if sig.Type.Bullish() && sig.KeyLevels.Entry > price {
				t.Errorf("bullish entry %v above price %v", sig.KeyLevels.Entry, price)
			}
			if sig.Type.Bearish() && sig.KeyLevels.Entry < price {
				t.Errorf("bearish entry %v below price %v", sig.KeyLevels.Entry, price)
			}
			if !sig.GeneratedAt.Equal(testClock()) {
				t.Errorf("timestamp not from the injected clock: %v", sig.GeneratedAt)
			}

			again := a.Analyze("BTC", price, candles)
			if diff := cmp.Diff(sig, again); diff != "" {
				t.Errorf("analysis not deterministic (-first +second):\n%s", diff)
			}
		})
	}
}
