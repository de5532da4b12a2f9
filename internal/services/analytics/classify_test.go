package analytics

import (
	"testing"

	"CoinSim/internal/domain/models"
)

func TestClassify(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name    string
		net     int
		quality float64
		want    models.SignalType
	}{
		{"extreme buy", 12, 70, models.SignalExtremeBuy},
		{"extreme demoted to strong on quality", 12, 69, models.SignalStrongBuy},
		{"extreme demoted twice on quality", 12, 54, models.SignalBuy},
		{"strong buy", 8, 55, models.SignalStrongBuy},
		{"strong demoted on quality", 8, 54, models.SignalBuy},
		{"buy", 5, 0, models.SignalBuy},
		{"weak buy", 3, 0, models.SignalWeakBuy},
		{"below weak threshold", 2, 100, models.SignalNeutral},
		{"zero net", 0, 100, models.SignalNeutral},
		{"weak sell", -3, 0, models.SignalWeakSell},
		{"sell", -5, 0, models.SignalSell},
		{"strong sell", -8, 60, models.SignalStrongSell},
		{"extreme sell", -14, 80, models.SignalExtremeSell},
		{"extreme sell demoted on quality", -14, 40, models.SignalSell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.classify(tt.net, tt.quality); got != tt.want {
				t.Errorf("classify(%d, %.0f): got %v, want %v", tt.net, tt.quality, got, tt.want)
			}
		})
	}
}

func TestQualityScore(t *testing.T) {
	cfg := DefaultConfig()

	// dominant*6 - warnings*5, clamped to [0, 100].
	assertClose(t, "plain", cfg.qualityScore(10, 2), 50, 1e-9)
	assertClose(t, "clamped high", cfg.qualityScore(20, 0), 100, 1e-9)
	assertClose(t, "clamped low", cfg.qualityScore(1, 4), 0, 1e-9)
	assertClose(t, "no votes", cfg.qualityScore(0, 0), 0, 1e-9)
}

func TestConfidence(t *testing.T) {
	// |net| / total votes * 100.
	assertClose(t, "mixed", confidence(7, 3), 40, 1e-9)
	assertClose(t, "one sided", confidence(5, 0), 100, 1e-9)
	assertClose(t, "balanced", confidence(4, 4), 0, 1e-9)
	assertClose(t, "no votes", confidence(0, 0), 0, 1e-9)
}

func TestTypeForRankRoundTrip(t *testing.T) {
	for rank := -4; rank <= 4; rank++ {
		if got := typeForRank(rank).Rank(); got != rank {
			t.Errorf("rank %d: round-tripped to %d", rank, got)
		}
	}
}
