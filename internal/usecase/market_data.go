package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
	"CoinSim/pkg/cache"
)

const (
	defaultFeedTTL = 60 * time.Second
	marketsKey     = "markets:all"
)

// MarketDataService is the cached view over the REST feed and the candle
// store. Reads go cache, then store, then feed; the last good snapshot is
// kept in memory and served stale when the feed fails, so a feed outage
// degrades prices instead of breaking trading.
type MarketDataService struct {
	feed    domrepo.MarketFeed
	store   domrepo.CandleStore
	cache   cache.Service
	metrics domrepo.Metrics
	ttl     time.Duration

	mu      sync.RWMutex
	last    []models.Asset
	assets  map[string]models.Asset
	symToID map[string]string
}

var _ PriceSource = (*MarketDataService)(nil)

// NewMarketDataService creates a new MarketDataService instance. A zero ttl
// means the default 60s.
func NewMarketDataService(
	feed domrepo.MarketFeed,
	store domrepo.CandleStore,
	c cache.Service,
	metrics domrepo.Metrics,
	ttl time.Duration,
) *MarketDataService {
	if ttl <= 0 {
		ttl = defaultFeedTTL
	}
	return &MarketDataService{
		feed:    feed,
		store:   store,
		cache:   c,
		metrics: metrics,
		ttl:     ttl,
		assets:  make(map[string]models.Asset),
		symToID: make(map[string]string),
	}
}

// Markets returns the current asset snapshots: cache first, then the feed,
// then the last good snapshot when the feed fails.
func (s *MarketDataService) Markets(ctx context.Context) ([]models.Asset, error) {
	var cached []models.Asset
	if err := s.cache.Get(ctx, marketsKey, &cached); err == nil && len(cached) > 0 {
		s.metrics.RecordCacheHit("markets", true)
		return cached, nil
	}
	s.metrics.RecordCacheHit("markets", false)

	assets, err := s.RefreshMarkets(ctx)
	if err != nil {
		if stale := s.snapshot(); len(stale) > 0 {
			s.metrics.RecordError("feed_stale_served")
			return stale, nil
		}
		return nil, fmt.Errorf("markets: %w", err)
	}
	return assets, nil
}

// RefreshMarkets fetches a fresh snapshot from the feed and rewarms the
// cache. Scheduled on an interval; also the miss path of Markets.
func (s *MarketDataService) RefreshMarkets(ctx context.Context) ([]models.Asset, error) {
	start := time.Now()
	assets, err := s.feed.Markets(ctx)
	s.metrics.RecordLatency("feed_markets", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("feed_markets")
		return nil, err
	}
	if len(assets) == 0 {
		s.metrics.RecordError("feed_markets_empty")
		return nil, fmt.Errorf("feed returned no markets")
	}

	s.mu.Lock()
	s.last = assets
	s.assets = make(map[string]models.Asset, len(assets))
	s.symToID = make(map[string]string, len(assets))
	for _, a := range assets {
		s.assets[a.ID] = a
		s.symToID[strings.ToUpper(a.Symbol)] = a.ID
	}
	s.mu.Unlock()

	if err := s.cache.Set(ctx, marketsKey, assets, s.ttl); err != nil {
		s.metrics.RecordError("cache_set")
	}
	return assets, nil
}

// Asset resolves one snapshot by asset id or ticker symbol, refreshing the
// feed once if nothing is known yet.
func (s *MarketDataService) Asset(ctx context.Context, key string) (models.Asset, bool) {
	if a, ok := s.resolve(key); ok {
		return a, true
	}
	if _, err := s.Markets(ctx); err != nil {
		return models.Asset{}, false
	}
	return s.resolve(key)
}

// Price implements PriceSource over the cached snapshots. Live ticks keep
// the snapshot current between feed refreshes via ApplyTick.
func (s *MarketDataService) Price(ctx context.Context, key string) (float64, error) {
	a, ok := s.Asset(ctx, key)
	if !ok {
		return 0, fmt.Errorf("no market data for %s", key)
	}
	return a.CurrentPrice, nil
}

// AssetID maps a ticker symbol or stream pair name to its asset id.
func (s *MarketDataService) AssetID(symbol string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupID(symbol)
}

// lookupID tries the exact ticker first, then with a USDT/USD quote suffix
// stripped so stream pair names (btcusdt) match feed tickers (BTC). Caller
// must hold the lock.
func (s *MarketDataService) lookupID(symbol string) (string, bool) {
	u := strings.ToUpper(strings.TrimSpace(symbol))
	if id, ok := s.symToID[u]; ok {
		return id, true
	}
	for _, quote := range []string{"USDT", "USD"} {
		if len(u) > len(quote) && strings.HasSuffix(u, quote) {
			if id, ok := s.symToID[strings.TrimSuffix(u, quote)]; ok {
				return id, true
			}
		}
	}
	return "", false
}

// ApplyTick folds a stream print into the in-memory snapshot so prices stay
// live between feed refreshes.
func (s *MarketDataService) ApplyTick(tick models.Tick) {
	if tick.Price <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.lookupID(tick.Symbol)
	if !ok {
		return
	}
	a := s.assets[id]
	a.CurrentPrice = tick.Price
	a.UpdatedAt = tick.At
	s.assets[id] = a
	for i := range s.last {
		if s.last[i].ID == id {
			s.last[i].CurrentPrice = tick.Price
			s.last[i].UpdatedAt = tick.At
			break
		}
	}
}

// Candles serves history read-through: cache, candle store, then the REST
// feed, warming the earlier layers on the way back.
func (s *MarketDataService) Candles(ctx context.Context, symbol string, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	key := cache.GenerateKeyWithParams("candles", symbol, tf, limit)
	var cached []models.Candle
	if err := s.cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
		s.metrics.RecordCacheHit("candles", true)
		return cached, nil
	}
	s.metrics.RecordCacheHit("candles", false)

	var partial []models.Candle
	if s.store != nil {
		stored, err := s.store.GetLatestNCandles(ctx, symbol, limit, tf)
		if err != nil {
			s.metrics.RecordError("candle_store_read")
		} else if len(stored) >= limit {
			s.warmCandleCache(ctx, key, stored)
			return stored, nil
		} else {
			partial = stored
		}
	}

	start := time.Now()
	fetched, err := s.feed.Candles(ctx, symbol, tf, limit)
	s.metrics.RecordLatency("feed_candles", time.Since(start).Seconds())
	if err != nil || len(fetched) == 0 {
		s.metrics.RecordError("feed_candles")
		if len(partial) > 0 {
			return partial, nil
		}
		if err == nil {
			err = fmt.Errorf("feed returned no candles")
		}
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}

	s.warmCandleCache(ctx, key, fetched)
	if s.store != nil {
		batch := make([]*models.Candle, 0, len(fetched))
		for i := range fetched {
			batch = append(batch, &fetched[i])
		}
		if err := s.store.StoreBatch(ctx, batch); err != nil {
			s.metrics.RecordError("candle_store_write")
		}
	}
	return fetched, nil
}

func (s *MarketDataService) warmCandleCache(ctx context.Context, key string, candles []models.Candle) {
	if err := s.cache.Set(ctx, key, candles, s.ttl); err != nil {
		s.metrics.RecordError("cache_set")
	}
}

func (s *MarketDataService) snapshot() []models.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Asset, len(s.last))
	copy(out, s.last)
	return out
}

func (s *MarketDataService) resolve(key string) (models.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.assets[key]; ok {
		return a, true
	}
	if id, ok := s.lookupID(key); ok {
		return s.assets[id], true
	}
	return models.Asset{}, false
}
