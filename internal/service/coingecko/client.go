package coingecko

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
	svccache "CoinSim/internal/service/cache"
	"CoinSim/internal/service/ratelimit"
	pkghttp "CoinSim/pkg/http"
	applogger "CoinSim/pkg/logger"
)

const (
	defaultBaseURL    = "https://api.coingecko.com/api/v3"
	defaultVsCurrency = "usd"
	defaultPerPage    = 50

	limiterKey = "coingecko"
	rawBodyTTL = 30 * time.Second
)

// Config holds the REST feed settings.
type Config struct {
	BaseURL    string
	APIKey     string
	VsCurrency string
	PerPage    int
	Timeout    time.Duration
	// Token bucket for outbound calls. The public tier allows roughly
	// 10-30 calls per minute; default well under that.
	RateBurst     float64
	RatePerSecond float64
}

// Client implements MarketFeed over a CoinGecko-style REST API. Raw JSON
// never crosses the package boundary: responses are parsed with gjson into
// typed assets and candles, and candles violating OHLC invariants are
// dropped and counted.
type Client struct {
	cfg     Config
	http    *pkghttp.Client
	limiter *ratelimit.Limiter
	raw     svccache.BytesCache
	metrics domrepo.Metrics
	l       *applogger.Logger

	mu      sync.RWMutex
	symToID map[string]string
}

// New creates a new CoinGecko-style feed client. The raw cache is optional
// and short-circuits repeated snapshot fetches inside its TTL.
func New(cfg Config, raw svccache.BytesCache, metrics domrepo.Metrics, l *applogger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.VsCurrency == "" {
		cfg.VsCurrency = defaultVsCurrency
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 0.25
	}
	return &Client{
		cfg:     cfg,
		http:    pkghttp.NewClient(pkghttp.WithTimeout(cfg.Timeout)),
		limiter: ratelimit.New(),
		raw:     raw,
		metrics: metrics,
		l:       l,
		symToID: make(map[string]string),
	}
}

// Markets fetches the 24h snapshot for the top assets by market cap.
func (c *Client) Markets(ctx context.Context) ([]models.Asset, error) {
	body, err := c.fetchMarketsBody(ctx)
	if err != nil {
		return nil, err
	}

	rows := gjson.ParseBytes(body).Array()
	assets := make([]models.Asset, 0, len(rows))
	ids := make(map[string]string, len(rows))
	for _, r := range rows {
		id := r.Get("id").String()
		sym := strings.ToUpper(r.Get("symbol").String())
		if id == "" || sym == "" {
			continue
		}
		updated := time.Now().UTC()
		if ts := r.Get("last_updated").String(); ts != "" {
			if t, perr := time.Parse(time.RFC3339, ts); perr == nil {
				updated = t
			}
		}
		assets = append(assets, models.Asset{
			ID:           id,
			Symbol:       sym,
			Name:         r.Get("name").String(),
			CurrentPrice: r.Get("current_price").Float(),
			ChangePct24h: r.Get("price_change_percentage_24h").Float(),
			High24h:      r.Get("high_24h").Float(),
			Low24h:       r.Get("low_24h").Float(),
			Volume24h:    r.Get("total_volume").Float(),
			UpdatedAt:    updated,
		})
		ids[sym] = id
	}

	c.mu.Lock()
	for sym, id := range ids {
		c.symToID[sym] = id
	}
	c.mu.Unlock()

	if c.l != nil {
		c.l.Debug("coingecko markets fetched", applogger.Int("assets", len(assets)))
	}
	return assets, nil
}

func (c *Client) fetchMarketsBody(ctx context.Context) ([]byte, error) {
	cacheKey := "coingecko:markets:raw"
	if c.raw != nil {
		if b, ok, _ := c.raw.GetBytes(cacheKey); ok && len(b) > 0 {
			return b, nil
		}
	}
	if !c.limiter.Allow(limiterKey, c.cfg.RateBurst, c.cfg.RatePerSecond) {
		c.metrics.RecordError("feed_ratelimited")
		return nil, fmt.Errorf("feed rate limited")
	}

	var body []byte
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.cfg.BaseURL + "/coins/markets",
		QueryParams: map[string][]string{
			"vs_currency": {c.cfg.VsCurrency},
			"order":       {"market_cap_desc"},
			"per_page":    {strconv.Itoa(c.cfg.PerPage)},
			"page":        {"1"},
		},
		Headers: c.headers(),
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	if c.raw != nil {
		_ = c.raw.SetBytes(cacheKey, body, rawBodyTTL)
	}
	return body, nil
}

// Candles fetches OHLC history. The provider picks candle granularity from
// the days window; buckets are labeled with the requested timeframe for
// storage and analysis.
func (c *Client) Candles(ctx context.Context, symbol string, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		limit = 200
	}
	id := c.coinID(symbol)

	if !c.limiter.Allow(limiterKey, c.cfg.RateBurst, c.cfg.RatePerSecond) {
		c.metrics.RecordError("feed_ratelimited")
		return nil, fmt.Errorf("feed rate limited")
	}

	var body []byte
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    fmt.Sprintf("%s/coins/%s/ohlc", c.cfg.BaseURL, id),
		QueryParams: map[string][]string{
			"vs_currency": {c.cfg.VsCurrency},
			"days":        {strconv.Itoa(daysFor(tf, limit))},
		},
		Headers: c.headers(),
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("fetch candles %s: %w", id, err)
	}

	rows := gjson.ParseBytes(body).Array()
	out := make([]models.Candle, 0, len(rows))
	dropped := 0
	var lastBucket time.Time
	for _, r := range rows {
		// rows are [ts_ms, open, high, low, close]
		vals := r.Array()
		if len(vals) < 5 {
			dropped++
			continue
		}
		cdl := models.Candle{
			Symbol:    strings.ToUpper(symbol),
			Timeframe: string(tf),
			Bucket:    time.UnixMilli(vals[0].Int()).UTC(),
			Open:      vals[1].Float(),
			High:      vals[2].Float(),
			Low:       vals[3].Float(),
			Close:     vals[4].Float(),
		}
		if !validCandle(cdl) || !cdl.Bucket.After(lastBucket) {
			dropped++
			continue
		}
		lastBucket = cdl.Bucket
		out = append(out, cdl)
	}
	if dropped > 0 {
		c.metrics.RecordError("feed_candle_invalid")
		if c.l != nil {
			c.l.Warn("dropped invalid candles",
				applogger.String("symbol", symbol),
				applogger.Int("dropped", dropped),
			)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if c.cfg.APIKey != "" {
		h["x-cg-demo-api-key"] = c.cfg.APIKey
	}
	return h
}

// coinID resolves a ticker seen in a previous Markets call, falling back to
// the lowercased input so callers may pass coin ids directly.
func (c *Client) coinID(symbol string) string {
	c.mu.RLock()
	id, ok := c.symToID[strings.ToUpper(symbol)]
	c.mu.RUnlock()
	if ok {
		return id
	}
	return strings.ToLower(symbol)
}

// daysFor maps a timeframe window onto the provider's days parameter,
// snapping up to the granularity breakpoints it accepts.
func daysFor(tf domrepo.Timeframe, limit int) int {
	span := tf.Duration() * time.Duration(limit)
	days := int(span / (24 * time.Hour))
	if span%(24*time.Hour) != 0 {
		days++
	}
	switch {
	case days <= 1:
		return 1
	case days <= 7:
		return 7
	case days <= 14:
		return 14
	case days <= 30:
		return 30
	case days <= 90:
		return 90
	case days <= 180:
		return 180
	default:
		return 365
	}
}

func validCandle(c models.Candle) bool {
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return false
	}
	hi := c.Open
	if c.Close > hi {
		hi = c.Close
	}
	lo := c.Open
	if c.Close < lo {
		lo = c.Close
	}
	return c.High >= hi && c.Low <= lo && c.Volume >= 0
}

var _ domrepo.MarketFeed = (*Client)(nil)
