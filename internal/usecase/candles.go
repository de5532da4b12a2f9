package usecase

import (
	"context"
	"fmt"
	"time"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
)

const (
	rangeDefaultLimit = 10000
	rangeMaxLimit     = 50000
)

// CandlesUseCase answers ranged history queries against the candle store.
type CandlesUseCase struct {
	store domrepo.CandleStore
}

func NewCandlesUseCase(store domrepo.CandleStore) *CandlesUseCase {
	return &CandlesUseCase{store: store}
}

// CandleRange bounds a history query. From and To are aligned down to
// whole bars of the timeframe before the store is asked.
type CandleRange struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Timeframe domrepo.Timeframe
	Limit     int
}

func (q *CandleRange) check() error {
	if q.Symbol == "" {
		return fmt.Errorf("symbol required")
	}
	if q.From.After(q.To) {
		return fmt.Errorf("from must be <= to")
	}
	return nil
}

func (q *CandleRange) clampLimit() {
	if q.Limit <= 0 {
		q.Limit = rangeDefaultLimit
	}
	if q.Limit > rangeMaxLimit {
		q.Limit = rangeMaxLimit
	}
}

// CandleHistory is the payload served for a ranged query.
type CandleHistory struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Count     int             `json:"count"`
	Candles   []models.Candle `json:"candles"`
}

// GetCandles serves ranged historical queries straight from the store,
// bypassing the feed read-through used for latest-N requests.
func (uc *CandlesUseCase) GetCandles(ctx context.Context, q CandleRange) (*CandleHistory, error) {
	if err := q.check(); err != nil {
		return nil, err
	}
	q.clampLimit()

	// Align the range to bar boundaries so edge buckets are whole bars.
	bar := q.Timeframe.Duration()
	from, to := q.From.Truncate(bar), q.To.Truncate(bar)

	candles, err := uc.store.GetCandles(ctx, q.Symbol, from, to, q.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	if len(candles) > q.Limit {
		candles = candles[:q.Limit]
	}

	return &CandleHistory{
		Symbol:    q.Symbol,
		Timeframe: string(q.Timeframe),
		From:      from,
		To:        to,
		Count:     len(candles),
		Candles:   candles,
	}, nil
}
