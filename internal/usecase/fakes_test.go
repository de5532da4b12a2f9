package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
	"CoinSim/pkg/cache"
	"CoinSim/pkg/queue"
)

// fakeMetrics counts recorder calls under composite keys like "trade:BUY"
// so tests can assert exactly which counters moved.
type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{counts: make(map[string]int)}
}

func (m *fakeMetrics) bump(key string) {
	m.mu.Lock()
	m.counts[key]++
	m.mu.Unlock()
}

func (m *fakeMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *fakeMetrics) RecordTick(symbol string)              { m.bump("tick:" + symbol) }
func (m *fakeMetrics) RecordCandle(symbol, timeframe string) { m.bump("candle:" + symbol + ":" + timeframe) }
func (m *fakeMetrics) RecordJournalAppend(backend, kind string) {
	m.bump("journal:" + backend + ":" + kind)
}
func (m *fakeMetrics) RecordTrade(side string)                  { m.bump("trade:" + side) }
func (m *fakeMetrics) RecordPositionOpen(side string)           { m.bump("pos_open:" + side) }
func (m *fakeMetrics) RecordPositionClose(reason string)        { m.bump("pos_close:" + reason) }
func (m *fakeMetrics) RecordSignal(profile, class string)       { m.bump("signal:" + profile + ":" + class) }
func (m *fakeMetrics) RecordError(kind string)                  { m.bump("error:" + kind) }
func (m *fakeMetrics) RecordLastPrice(symbol string, _ float64) { m.bump("last_price:" + symbol) }
func (m *fakeMetrics) RecordLatency(op string, _ float64)       { m.bump("latency:" + op) }
func (m *fakeMetrics) RecordCacheHit(name string, hit bool) {
	m.bump("cache:" + name + ":" + strconv.FormatBool(hit))
}

var _ domrepo.Metrics = (*fakeMetrics)(nil)

// fakeJournal records appended entries and can fail on demand.
type fakeJournal struct {
	mu      sync.Mutex
	entries []*models.JournalEntry
	batches int
	err     error
	closed  bool
}

func (j *fakeJournal) Append(_ context.Context, e *models.JournalEntry) error {
	if j.err != nil {
		return j.err
	}
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
	return nil
}

func (j *fakeJournal) AppendBatch(_ context.Context, entries []*models.JournalEntry) error {
	if j.err != nil {
		return j.err
	}
	j.mu.Lock()
	j.entries = append(j.entries, entries...)
	j.batches++
	j.mu.Unlock()
	return nil
}

func (j *fakeJournal) Close() error {
	j.closed = true
	return nil
}

func (j *fakeJournal) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

var _ domrepo.Journal = (*fakeJournal)(nil)

// fakeFeed serves canned snapshots and one shared candle page for every
// symbol. Errors are injected per endpoint.
type fakeFeed struct {
	mu          sync.Mutex
	assets      []models.Asset
	assetsErr   error
	candles     []models.Candle
	candlesErr  error
	marketCalls int
	candleCalls int
}

func (f *fakeFeed) Markets(_ context.Context) ([]models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marketCalls++
	if f.assetsErr != nil {
		return nil, f.assetsErr
	}
	return f.assets, nil
}

func (f *fakeFeed) Candles(_ context.Context, _ string, _ domrepo.Timeframe, _ int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candleCalls++
	if f.candlesErr != nil {
		return nil, f.candlesErr
	}
	return f.candles, nil
}

var _ domrepo.MarketFeed = (*fakeFeed)(nil)

// fakeCandleStore keeps rows per symbol in insertion order, oldest first.
type fakeCandleStore struct {
	mu       sync.Mutex
	rows     map[string][]models.Candle
	batches  int
	gotFrom  time.Time
	gotTo    time.Time
	readErr  error
	writeErr error
}

func newFakeCandleStore() *fakeCandleStore {
	return &fakeCandleStore{rows: make(map[string][]models.Candle)}
}

func (s *fakeCandleStore) Init(context.Context) error { return nil }

func (s *fakeCandleStore) Store(_ context.Context, c *models.Candle) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.mu.Lock()
	s.rows[c.Symbol] = append(s.rows[c.Symbol], *c)
	s.mu.Unlock()
	return nil
}

func (s *fakeCandleStore) StoreBatch(_ context.Context, candles []*models.Candle) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.mu.Lock()
	for _, c := range candles {
		s.rows[c.Symbol] = append(s.rows[c.Symbol], *c)
	}
	s.batches++
	s.mu.Unlock()
	return nil
}

func (s *fakeCandleStore) GetCandles(_ context.Context, symbol string, from, to time.Time, _ domrepo.Timeframe) ([]models.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotFrom, s.gotTo = from, to
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []models.Candle
	for _, c := range s.rows[symbol] {
		if !c.Bucket.Before(from) && !c.Bucket.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeCandleStore) GetLatestNCandles(_ context.Context, symbol string, n int, _ domrepo.Timeframe) ([]models.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	rows := s.rows[symbol]
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	out := make([]models.Candle, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *fakeCandleStore) Health(context.Context) error { return nil }
func (s *fakeCandleStore) Close() error                 { return nil }

var _ domrepo.CandleStore = (*fakeCandleStore)(nil)

// fakeCache round-trips values through JSON like the redis implementation,
// so type fidelity in tests matches production reads.
type fakeCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	locks   map[string]bool
	getErr  error
	setErr  error
	lockErr error
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		items: make(map[string][]byte),
		locks: make(map[string]bool),
	}
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = raw
	c.sets++
	c.mu.Unlock()
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	c.mu.Lock()
	raw, ok := c.items[key]
	c.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.mu.Unlock()
	return nil
}

func (c *fakeCache) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if c.lockErr != nil {
		return false, c.lockErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[key] {
		return false, nil
	}
	c.locks[key] = true
	return true, nil
}

func (c *fakeCache) Unlock(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.locks, key)
	c.mu.Unlock()
	return nil
}

var _ cache.Service = (*fakeCache)(nil)

// fakeQueue records published messages in order.
type fakeQueue struct {
	mu       sync.Mutex
	types    []string
	payloads []interface{}
	err      error
}

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payload)
	q.mu.Unlock()
	return nil
}

var _ queue.QueueService = (*fakeQueue)(nil)

// fakeAnalyzer returns one canned class and records which path produced it.
type fakeAnalyzer struct {
	mu        sync.Mutex
	class     models.SignalType
	full      int
	snapshots int
}

func newFakeAnalyzer(class models.SignalType) *fakeAnalyzer {
	return &fakeAnalyzer{class: class}
}

func (a *fakeAnalyzer) Analyze(symbol string, price float64, _ []models.Candle) *models.Signal {
	a.mu.Lock()
	a.full++
	a.mu.Unlock()
	return &models.Signal{
		Symbol:      symbol,
		Price:       price,
		Type:        a.class,
		Profile:     models.ProfileFull,
		GeneratedAt: time.Now(),
	}
}

func (a *fakeAnalyzer) AnalyzeSnapshot(asset models.Asset) *models.Signal {
	a.mu.Lock()
	a.snapshots++
	a.mu.Unlock()
	return &models.Signal{
		Symbol:      asset.Symbol,
		Price:       asset.CurrentPrice,
		Type:        a.class,
		Profile:     models.ProfileFast,
		GeneratedAt: time.Now(),
	}
}

func (a *fakeAnalyzer) calls() (full, snapshots int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.full, a.snapshots
}

// fakeStateStore holds one snapshot in memory.
type fakeStateStore struct {
	snap    *models.SimState
	loadErr error
	saveErr error
	saves   int
}

func (s *fakeStateStore) Load(context.Context) (*models.SimState, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.snap, nil
}

func (s *fakeStateStore) Save(_ context.Context, snap *models.SimState) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap
	s.saves++
	return nil
}

var _ domrepo.StateStore = (*fakeStateStore)(nil)

// fakePrices serves prices from a map; unknown keys are lookup failures.
type fakePrices struct {
	prices map[string]float64
}

func (p *fakePrices) Price(_ context.Context, key string) (float64, error) {
	v, ok := p.prices[key]
	if !ok {
		return 0, fmt.Errorf("no price for %s", key)
	}
	return v, nil
}

var _ PriceSource = (*fakePrices)(nil)
