package analytics

import (
	"math"
	"testing"
	"time"

	"CoinSim/internal/domain/models"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (diff=%.6f)", label, got, want, math.Abs(got-want))
	}
}

// candlesFromCloses builds a plausible candle series: each bar opens at the
// prior close with a small wick either side.
func candlesFromCloses(closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = models.Candle{
			Symbol: "BTC", Timeframe: "1h",
			Bucket: base.Add(time.Duration(i) * time.Hour),
			Open:   open,
			High:   math.Max(open, c) + 0.3,
			Low:    math.Min(open, c) - 0.3,
			Close:  c,
			Volume: 100,
		}
	}
	return out
}

var testClock = func() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}
