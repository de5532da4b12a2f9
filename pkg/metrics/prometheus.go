package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics on Prometheus. All series
// carry the coinsim_ prefix and live on the default registry, where the
// /metrics endpoint scrapes them.
type Recorder struct {
	ticksTotal      *prometheus.CounterVec
	candlesTotal    *prometheus.CounterVec
	journalAppends  *prometheus.CounterVec
	tradesTotal     *prometheus.CounterVec
	positionsOpened *prometheus.CounterVec
	positionsClosed *prometheus.CounterVec
	signalsTotal    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	cacheRequests   *prometheus.CounterVec
}

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

func gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
}

func histogram(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: prometheus.DefBuckets,
	}, labels)
}

// New registers the simulator's metric families and returns the recorder.
// Call it once; promauto panics on duplicate registration.
func New() *Recorder {
	return &Recorder{
		ticksTotal:      counter("coinsim_ticks_total", "Total number of stream ticks processed", "symbol"),
		candlesTotal:    counter("coinsim_candles_total", "Total number of candles completed", "symbol", "timeframe"),
		journalAppends:  counter("coinsim_journal_appends_total", "Total journal entries appended per backend", "backend", "kind"),
		tradesTotal:     counter("coinsim_trades_total", "Total spot trades executed", "side"),
		positionsOpened: counter("coinsim_positions_opened_total", "Total futures positions opened", "side"),
		positionsClosed: counter("coinsim_positions_closed_total", "Total futures positions closed, liquidations included", "reason"),
		signalsTotal:    counter("coinsim_signals_total", "Total signals computed", "profile", "class"),
		errorsTotal:     counter("coinsim_errors_total", "Total number of errors encountered", "type"),
		lastPrice:       gauge("coinsim_last_price", "Last recorded price for a symbol", "symbol"),
		latency:         histogram("coinsim_operation_duration_seconds", "Duration of operations in seconds", "operation"),
		cacheRequests:   counter("coinsim_cache_requests_total", "Cache lookups by cache name and result", "cache", "result"),
	}
}

func (r *Recorder) RecordTick(symbol string) {
	r.ticksTotal.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordCandle(symbol, timeframe string) {
	r.candlesTotal.WithLabelValues(symbol, timeframe).Inc()
}

// RecordJournalAppend counts one journal entry per backend ("kafka",
// "clickhouse") and entry kind ("tick", "trade", "signal").
func (r *Recorder) RecordJournalAppend(backend, kind string) {
	r.journalAppends.WithLabelValues(backend, kind).Inc()
}

func (r *Recorder) RecordTrade(side string) {
	r.tradesTotal.WithLabelValues(side).Inc()
}

func (r *Recorder) RecordPositionOpen(side string) {
	r.positionsOpened.WithLabelValues(side).Inc()
}

// RecordPositionClose counts a closed futures position by reason
// ("manual", "liquidation", "stop").
func (r *Recorder) RecordPositionClose(reason string) {
	r.positionsClosed.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordSignal(profile, class string) {
	r.signalsTotal.WithLabelValues(profile, class).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency observes one operation duration. Seconds, not millis.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordCacheHit(name string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheRequests.WithLabelValues(name, result).Inc()
}
