package indicators

import (
	"math"
	"testing"
	"time"

	"CoinSim/internal/domain/models"
)

// fromCloses builds candles with a +-0.5 high/low band around each close.
func fromCloses(closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = models.Candle{
			Symbol: "BTC", Timeframe: "1h",
			Bucket: base.Add(time.Duration(i) * time.Hour),
			Open:   c, High: c + 0.5, Low: c - 0.5, Close: c,
			Volume: 100,
		}
	}
	return out
}

func ohlcv(o, h, l, c, v float64) models.Candle {
	return models.Candle{Symbol: "BTC", Open: o, High: h, Low: l, Close: c, Volume: v}
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (diff=%.6f)", label, got, want, math.Abs(got-want))
	}
}

func TestSMA(t *testing.T) {
	// (104+103+105)/3 = 104
	values := []float64{100, 102, 104, 103, 105}
	assertClose(t, "SMA(3)", SMA(values, 3), 104, 1e-9)

	if got := SMA(values, 6); got != 0 {
		t.Errorf("SMA with short input: got %v, want 0", got)
	}
	if got := SMA(nil, 3); got != 0 {
		t.Errorf("SMA on nil: got %v, want 0", got)
	}
}

func TestStdDev(t *testing.T) {
	// Values 10, 12, 14: mean 12, population variance (4+0+4)/3.
	want := math.Sqrt(8.0 / 3.0)
	assertClose(t, "StdDev(3)", StdDev([]float64{10, 12, 14}, 3), want, 1e-9)

	if got := StdDev([]float64{10}, 3); got != 0 {
		t.Errorf("StdDev with short input: got %v, want 0", got)
	}
}

func TestHighestHighLowestLow(t *testing.T) {
	candles := []models.Candle{
		ohlcv(10, 12, 9, 11, 100),
		ohlcv(11, 15, 10, 14, 100),
		ohlcv(14, 14.5, 11, 12, 100),
	}
	assertClose(t, "HighestHigh(2)", HighestHigh(candles, 2), 15, 1e-9)
	assertClose(t, "LowestLow(2)", LowestLow(candles, 2), 10, 1e-9)

	// Period larger than the window clamps to what exists.
	assertClose(t, "HighestHigh(10)", HighestHigh(candles, 10), 15, 1e-9)
	if got := HighestHigh(nil, 5); got != 0 {
		t.Errorf("HighestHigh on nil: got %v, want 0", got)
	}
}

func TestTypicalPrice(t *testing.T) {
	c := ohlcv(10, 12, 8, 10, 100)
	assertClose(t, "TypicalPrice", TypicalPrice(c), 10, 1e-9)
}
