package usecase

import (
	"sync"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
)

// CandleBuilder aggregates stream ticks into fixed-width OHLCV buckets, one
// in-progress candle per symbol. A candle completes when the first tick of
// the next bucket arrives.
type CandleBuilder struct {
	mu   sync.Mutex
	tf   domrepo.Timeframe
	open map[string]*models.Candle
}

// NewCandleBuilder creates a builder bucketing at the given timeframe.
func NewCandleBuilder(tf domrepo.Timeframe) *CandleBuilder {
	return &CandleBuilder{
		tf:   tf,
		open: make(map[string]*models.Candle),
	}
}

// Add folds a tick into its symbol's bucket. It returns the completed
// candle when the tick opens a new bucket, and reports ticks older than the
// current bucket as late (they are dropped, not folded).
func (b *CandleBuilder) Add(tick models.Tick) (completed *models.Candle, late bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bucket := tick.At.Truncate(b.tf.Duration())
	cur, ok := b.open[tick.Symbol]
	if !ok {
		b.open[tick.Symbol] = b.start(tick)
		return nil, false
	}
	switch {
	case bucket.After(cur.Bucket):
		b.open[tick.Symbol] = b.start(tick)
		return cur, false
	case bucket.Before(cur.Bucket):
		return nil, true
	}

	if tick.Price > cur.High {
		cur.High = tick.Price
	}
	if tick.Price < cur.Low {
		cur.Low = tick.Price
	}
	cur.Close = tick.Price
	cur.Volume += tick.Qty
	return nil, false
}

// Flush returns every in-progress candle and clears the builder. Used on
// shutdown so partial buckets are not lost.
func (b *CandleBuilder) Flush() []*models.Candle {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.Candle, 0, len(b.open))
	for _, c := range b.open {
		out = append(out, c)
	}
	b.open = make(map[string]*models.Candle)
	return out
}

func (b *CandleBuilder) start(tick models.Tick) *models.Candle {
	return &models.Candle{
		Symbol:    tick.Symbol,
		Timeframe: string(b.tf),
		Bucket:    tick.At.Truncate(b.tf.Duration()),
		Open:      tick.Price,
		High:      tick.Price,
		Low:       tick.Price,
		Close:     tick.Price,
		Volume:    tick.Qty,
	}
}
