package usecase

import (
	"testing"
	"time"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
)

func tickAt(symbol string, at time.Time, price, qty float64) models.Tick {
	return models.Tick{Symbol: symbol, Price: price, Qty: qty, At: at}
}

func TestCandleBuilderFoldsTicksIntoBucket(t *testing.T) {
	b := NewCandleBuilder(domrepo.TF1m)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	ticks := []models.Tick{
		tickAt("BTCUSDT", base.Add(1*time.Second), 100, 1),
		tickAt("BTCUSDT", base.Add(30*time.Second), 105, 2),
		tickAt("BTCUSDT", base.Add(45*time.Second), 95, 1),
		tickAt("BTCUSDT", base.Add(59*time.Second), 102, 0.5),
	}
	for _, tk := range ticks {
		if done, late := b.Add(tk); done != nil || late {
			t.Fatalf("tick at %v: done=%v late=%v", tk.At, done, late)
		}
	}

	// First tick of the next minute closes the bucket.
	done, late := b.Add(tickAt("BTCUSDT", base.Add(62*time.Second), 101, 1))
	if late {
		t.Fatal("rollover tick reported late")
	}
	if done == nil {
		t.Fatal("no candle completed on rollover")
	}
	if !done.Bucket.Equal(base) {
		t.Errorf("bucket = %v, want %v", done.Bucket, base)
	}
	if done.Timeframe != "1m" {
		t.Errorf("timeframe = %q, want 1m", done.Timeframe)
	}
	assertClose(t, "open", done.Open, 100, 1e-12)
	assertClose(t, "high", done.High, 105, 1e-12)
	assertClose(t, "low", done.Low, 95, 1e-12)
	assertClose(t, "close", done.Close, 102, 1e-12)
	assertClose(t, "volume", done.Volume, 4.5, 1e-12)
}

func TestCandleBuilderDropsLateTicks(t *testing.T) {
	b := NewCandleBuilder(domrepo.TF1m)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	b.Add(tickAt("BTCUSDT", base.Add(10*time.Second), 100, 1))
	b.Add(tickAt("BTCUSDT", base.Add(70*time.Second), 110, 1))

	// A print from the already-closed minute must not touch the open bucket.
	done, late := b.Add(tickAt("BTCUSDT", base.Add(50*time.Second), 1, 99))
	if !late {
		t.Error("stale tick not reported late")
	}
	if done != nil {
		t.Errorf("stale tick completed a candle: %+v", done)
	}

	open := b.Flush()
	if len(open) != 1 {
		t.Fatalf("flush returned %d candles, want 1", len(open))
	}
	assertClose(t, "low untouched", open[0].Low, 110, 1e-12)
	assertClose(t, "volume untouched", open[0].Volume, 1, 1e-12)
}

func TestCandleBuilderKeepsSymbolsSeparate(t *testing.T) {
	b := NewCandleBuilder(domrepo.TF1m)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	b.Add(tickAt("BTCUSDT", base.Add(5*time.Second), 50000, 1))
	b.Add(tickAt("ETHUSDT", base.Add(6*time.Second), 3000, 2))

	// BTC rolls over; ETH's bucket stays open.
	done, _ := b.Add(tickAt("BTCUSDT", base.Add(61*time.Second), 50100, 1))
	if done == nil || done.Symbol != "BTCUSDT" {
		t.Fatalf("completed = %+v, want BTCUSDT candle", done)
	}

	open := b.Flush()
	if len(open) != 2 {
		t.Fatalf("flush returned %d candles, want 2", len(open))
	}
	bySymbol := map[string]float64{}
	for _, c := range open {
		bySymbol[c.Symbol] = c.Close
	}
	assertClose(t, "eth close", bySymbol["ETHUSDT"], 3000, 1e-12)
	assertClose(t, "btc close", bySymbol["BTCUSDT"], 50100, 1e-12)
}

func TestCandleBuilderFlushClears(t *testing.T) {
	b := NewCandleBuilder(domrepo.TF5m)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	b.Add(tickAt("BTCUSDT", base, 50000, 1))
	if got := len(b.Flush()); got != 1 {
		t.Fatalf("first flush = %d candles, want 1", got)
	}
	if got := len(b.Flush()); got != 0 {
		t.Errorf("second flush = %d candles, want 0", got)
	}
}

func TestCandleBuilderBucketAlignment(t *testing.T) {
	b := NewCandleBuilder(domrepo.TF1h)

	at := time.Date(2024, 6, 1, 12, 47, 33, 0, time.UTC)
	b.Add(tickAt("BTCUSDT", at, 50000, 1))

	open := b.Flush()
	if len(open) != 1 {
		t.Fatalf("flush returned %d candles, want 1", len(open))
	}
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if !open[0].Bucket.Equal(want) {
		t.Errorf("bucket = %v, want %v", open[0].Bucket, want)
	}
}
