package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "CoinSim/internal/domain/repository"
	"CoinSim/pkg/cache"
	"CoinSim/pkg/queue"
)

const (
	analyzeMessageType = "signal.analyze"

	// Upper bound on one symbol's analyze, including feed fetches.
	scanLockTTL = 30 * time.Second
)

// AnalyzePayload is the queue message for one symbol scan.
type AnalyzePayload struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Limit     int    `json:"limit"`
}

// SignalScanner fans a watchlist out into per-symbol analyze jobs and is
// itself the queue job that handles them. Handling a job warms the signal
// cache, so repeated deliveries of the same message are harmless.
type SignalScanner struct {
	signals *SignalService
	queue   queue.QueueService
	cache   cache.Service
	metrics domrepo.Metrics
	symbols []string
	tf      domrepo.Timeframe
	limit   int
}

// NewSignalScanner creates a new SignalScanner instance.
func NewSignalScanner(
	signals *SignalService,
	q queue.QueueService,
	c cache.Service,
	metrics domrepo.Metrics,
	symbols []string,
	tf domrepo.Timeframe,
	limit int,
) *SignalScanner {
	if !domrepo.IsValidTimeframe(tf) {
		tf = domrepo.DefaultTimeframe()
	}
	if limit <= 0 {
		limit = 200
	}
	return &SignalScanner{
		signals: signals,
		queue:   q,
		cache:   c,
		metrics: metrics,
		symbols: symbols,
		tf:      tf,
		limit:   limit,
	}
}

// Enqueue publishes one analyze job per symbol and returns how many were
// queued. An empty symbol list falls back to the configured watchlist.
func (s *SignalScanner) Enqueue(ctx context.Context, symbols []string) (int, error) {
	if len(symbols) == 0 {
		symbols = s.symbols
	}
	n := 0
	for _, sym := range symbols {
		if sym == "" {
			continue
		}
		payload := AnalyzePayload{Symbol: sym, Timeframe: string(s.tf), Limit: s.limit}
		if err := s.queue.PublishMessage(ctx, analyzeMessageType, payload); err != nil {
			s.metrics.RecordError("scan_enqueue")
			return n, fmt.Errorf("enqueue scan %s: %w", sym, err)
		}
		n++
	}
	return n, nil
}

// Name returns the unique identifier of the job.
func (s *SignalScanner) Name() string { return "signal_scanner" }

// Type returns the type of message that the job handles.
func (s *SignalScanner) Type() string { return analyzeMessageType }

// Handle computes the signal for the payload's symbol, warming the cache.
// A short advisory lock keeps parallel workers off the same symbol; if the
// lock layer is down the scan just runs unguarded.
func (s *SignalScanner) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[AnalyzePayload](payload)
	if err != nil {
		s.metrics.RecordError("scan_payload")
		return err
	}

	lockKey := cache.GenerateKey("scanlock", p.Symbol)
	if locked, err := s.cache.TryLock(ctx, lockKey, scanLockTTL); err == nil {
		if !locked {
			return nil
		}
		defer func() { _ = s.cache.Unlock(ctx, lockKey) }()
	}

	_, err = s.signals.Get(ctx, GetSignalParams{
		Symbol:    p.Symbol,
		Timeframe: domrepo.NormalizeTimeframe(p.Timeframe),
		Limit:     p.Limit,
		Profile:   ProfileAuto,
	})
	if err != nil {
		s.metrics.RecordError("scan_analyze")
		return fmt.Errorf("scan %s: %w", p.Symbol, err)
	}
	return nil
}

var _ queue.Job = (*SignalScanner)(nil)
