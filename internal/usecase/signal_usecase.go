package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
	domsvc "CoinSim/internal/domain/service"
	"CoinSim/pkg/cache"
)

// ProfileAuto picks the full profile when enough candle history exists and
// degrades to the 24h snapshot profile otherwise.
const ProfileAuto = "auto"

// SignalService computes classified signals through the analyzer, caches
// them, and degrades gracefully: short history or a failing candle feed
// yields a fast-profile signal instead of an error whenever a market
// snapshot is available.
type SignalService struct {
	market     *MarketDataService
	analyzer   domsvc.SignalAnalyzer
	cache      cache.Service
	metrics    domrepo.Metrics
	minCandles int
	ttl        time.Duration
	timeout    time.Duration
}

// NewSignalService creates a new SignalService instance.
func NewSignalService(
	market *MarketDataService,
	analyzer domsvc.SignalAnalyzer,
	c cache.Service,
	metrics domrepo.Metrics,
	minCandles int,
	ttl time.Duration,
) *SignalService {
	if minCandles <= 0 {
		minCandles = 20
	}
	if ttl <= 0 {
		ttl = defaultFeedTTL
	}
	return &SignalService{
		market:     market,
		analyzer:   analyzer,
		cache:      c,
		metrics:    metrics,
		minCandles: minCandles,
		ttl:        ttl,
		timeout:    10 * time.Second,
	}
}

type GetSignalParams struct {
	Symbol    string
	Timeframe domrepo.Timeframe
	Limit     int
	Profile   string
}

// Get returns the signal for one symbol, cached per symbol, timeframe and
// profile.
func (s *SignalService) Get(ctx context.Context, p GetSignalParams) (*models.Signal, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.Limit <= 0 {
		p.Limit = 200
	}
	profile := strings.ToLower(p.Profile)
	if profile == "" {
		profile = ProfileAuto
	}

	key := cache.GenerateKeyWithParams("signal", strings.ToUpper(p.Symbol), p.Timeframe, profile)
	var cached models.Signal
	if err := s.cache.Get(ctx, key, &cached); err == nil && cached.Type != "" {
		s.metrics.RecordCacheHit("signals", true)
		return &cached, nil
	}
	s.metrics.RecordCacheHit("signals", false)

	sig, err := s.compute(ctx, p.Symbol, p.Timeframe, p.Limit, profile)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSignal(string(sig.Profile), string(sig.Type))
	if err := s.cache.Set(ctx, key, sig, s.ttl); err != nil {
		s.metrics.RecordError("cache_set")
	}
	return sig, nil
}

func (s *SignalService) compute(ctx context.Context, symbol string, tf domrepo.Timeframe, limit int, profile string) (*models.Signal, error) {
	asset, haveAsset := s.market.Asset(ctx, symbol)

	if profile == string(models.ProfileFast) {
		if !haveAsset {
			return nil, fmt.Errorf("no market data for %s", symbol)
		}
		return s.analyzer.AnalyzeSnapshot(asset), nil
	}

	candles, err := s.market.Candles(ctx, symbol, tf, limit)
	if err != nil {
		if haveAsset {
			// feed degraded; serve the snapshot profile instead of failing
			return s.analyzer.AnalyzeSnapshot(asset), nil
		}
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}
	if profile == ProfileAuto && len(candles) < s.minCandles && haveAsset {
		return s.analyzer.AnalyzeSnapshot(asset), nil
	}

	price := lastClose(candles)
	if haveAsset && asset.CurrentPrice > 0 {
		price = asset.CurrentPrice
	}
	return s.analyzer.Analyze(strings.ToUpper(symbol), price, candles), nil
}

// ScanResult is one symbol's outcome in a bulk scan.
type ScanResult struct {
	Symbol string
	Signal *models.Signal
	Err    string
}

// ScanNow analyzes a set of symbols concurrently and returns per-symbol
// results in input order. One slow or failing symbol never blocks the rest
// beyond the overall timeout.
func (s *SignalService) ScanNow(ctx context.Context, symbols []string, tf domrepo.Timeframe, limit int) []ScanResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type item struct {
		idx int
		res ScanResult
	}
	ch := make(chan item, len(symbols))
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			sig, err := s.Get(ctx, GetSignalParams{
				Symbol:    sym,
				Timeframe: tf,
				Limit:     limit,
				Profile:   ProfileAuto,
			})
			r := ScanResult{Symbol: sym, Signal: sig}
			if err != nil {
				r.Err = err.Error()
			}
			ch <- item{i, r}
		}(i, sym)
	}
	go func() { wg.Wait(); close(ch) }()

	out := make([]ScanResult, len(symbols))
	for it := range ch {
		out[it.idx] = it.res
	}
	return out
}

func lastClose(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}
