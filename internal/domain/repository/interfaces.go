package repository

import (
	"context"

	"CoinSim/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// MarketFeed serves REST market snapshots and candle history. Callers must
// treat both as potentially stale, empty or failing and degrade instead of
// crashing.
type MarketFeed interface {
	Markets(ctx context.Context) ([]models.Asset, error)
	Candles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
}

// Journal receives append-only trade and position events.
type Journal interface {
	Append(ctx context.Context, e *models.JournalEntry) error
	AppendBatch(ctx context.Context, entries []*models.JournalEntry) error
	Close() error
}

// StateStore persists simulator snapshots across restarts.
type StateStore interface {
	Load(ctx context.Context) (*models.SimState, error)
	Save(ctx context.Context, s *models.SimState) error
}

type Metrics interface {
	RecordTick(symbol string)
	RecordCandle(symbol, timeframe string)
	RecordJournalAppend(backend, kind string)
	RecordTrade(side string)
	RecordPositionOpen(side string)
	RecordPositionClose(reason string)
	RecordSignal(profile, class string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordCacheHit(name string, hit bool)
}
