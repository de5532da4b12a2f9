package indicators

import "testing"

// zigzagUp is a 33-bar series with swing highs at bars 8 and 20 (higher
// high) and swing lows at bars 14 and 26 (higher low).
var zigzagUp = []float64{
	10, 10.5, 11, 11.5, 12, 12.5, 13, 13.5, 14,
	13.7, 13.4, 13.1, 12.8, 12.4, 12,
	12.7, 13.4, 14.1, 14.8, 15.4, 16,
	15.6, 15.2, 14.8, 14.4, 13.9, 13.5,
	13.8, 14.1, 14.4, 14.7, 14.9, 15,
}

func TestSwingPoints(t *testing.T) {
	// Single peak at bar 5 of 11; the band around closes is +-0.5.
	candles := fromCloses(10, 11, 12, 13, 14, 15, 14, 13, 12, 11, 10)
	highs, lows := SwingPoints(candles, 5)
	if len(highs) != 1 {
		t.Fatalf("swing highs: got %v, want one", highs)
	}
	assertClose(t, "swing high", highs[0], 15.5, 1e-9)
	if len(lows) != 0 {
		t.Errorf("swing lows: got %v, want none", lows)
	}
}

func TestNearestLevels(t *testing.T) {
	levels := []float64{11, 13, 18}
	assertClose(t, "nearest above", NearestAbove(12, levels), 13, 1e-9)
	assertClose(t, "nearest below", NearestBelow(12, levels), 11, 1e-9)

	// Strictly above/below: an equal level does not count.
	assertClose(t, "equal level above", NearestAbove(13, []float64{13}), 0, 1e-9)
	assertClose(t, "equal level below", NearestBelow(13, []float64{13}), 0, 1e-9)
	assertClose(t, "no level above", NearestAbove(20, levels), 0, 1e-9)
	assertClose(t, "no level below", NearestBelow(10, levels), 0, 1e-9)
}

func TestMarketStructureUptrend(t *testing.T) {
	candles := fromCloses(zigzagUp...)
	res := MarketStructure(candles)
	if res.Pattern != StructureUptrend {
		t.Fatalf("pattern: got %v, want %v", res.Pattern, StructureUptrend)
	}
	// Swing lows at 11.5 and 13, swing highs at 14.5 and 16.5, price 15.
	assertClose(t, "support", res.NearestSupport, 13, 1e-9)
	assertClose(t, "resistance", res.NearestResistance, 16.5, 1e-9)
	assertClose(t, "breakout pct", res.BreakoutPct, 10, 1e-6)
	assertClose(t, "breakdown pct", res.BreakdownPct, 13.333333, 1e-4)
}

func TestMarketStructureDowntrend(t *testing.T) {
	// Mirror the uptrend zigzag around 13 to turn HH/HL into LH/LL.
	down := make([]float64, len(zigzagUp))
	for i, c := range zigzagUp {
		down[i] = 26 - c
	}
	res := MarketStructure(fromCloses(down...))
	if res.Pattern != StructureDowntrend {
		t.Errorf("pattern: got %v, want %v", res.Pattern, StructureDowntrend)
	}
}

func TestMarketStructureInsufficientData(t *testing.T) {
	res := MarketStructure(fromCloses(10, 11, 12))
	if res.Pattern != StructureUnknown {
		t.Errorf("pattern: got %v, want %v", res.Pattern, StructureUnknown)
	}
}

func TestSupportResistance(t *testing.T) {
	candles := fromCloses(zigzagUp...)
	res := SupportResistance(candles)
	assertClose(t, "support", res.Support, 13, 1e-9)
	assertClose(t, "resistance", res.Resistance, 16.5, 1e-9)
}
