package analytics

import (
	"fmt"
	"time"

	"CoinSim/internal/domain/models"
	domsvc "CoinSim/internal/domain/service"
)

// Analyzer fuses indicator readings into one classified signal. It holds no
// market or portfolio state and performs no I/O; the clock is injectable so
// generated timestamps are deterministic in tests.
type Analyzer struct {
	cfg Config
	now func() time.Time
}

type Option func(*Analyzer)

// WithClock overrides the timestamp source for generated signals.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func NewAnalyzer(cfg Config, opts ...Option) *Analyzer {
	a := &Analyzer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ domsvc.SignalAnalyzer = (*Analyzer)(nil)

// Analyze runs the full profile over a candle window. Below MinCandles it
// degrades to a neutral signal carrying an insufficient-data warning rather
// than failing, so a caller always gets an answer while history accumulates.
func (a *Analyzer) Analyze(symbol string, price float64, candles []models.Candle) *models.Signal {
	if len(candles) < a.cfg.MinCandles {
		return a.insufficient(symbol, price, len(candles))
	}

	r := a.cfg.read(candles)
	t := a.cfg.vote(price, r)

	net := t.bullish - t.bearish
	dominant := max(t.bullish, t.bearish)
	quality := a.cfg.qualityScore(dominant, len(t.warnings))
	class := a.cfg.classify(net, quality)

	return &models.Signal{
		Symbol:        symbol,
		Price:         price,
		Type:          class,
		Profile:       models.ProfileFull,
		Confidence:    confidence(t.bullish, t.bearish),
		QualityScore:  quality,
		Confirmations: t.confirmations,
		Warnings:      t.warnings,
		KeyLevels:     a.cfg.deriveLevels(class, price, r.atr, r.levels.Support, r.levels.Resistance),
		Probabilities: a.cfg.probabilities(class, r.adx.ADX),
		GeneratedAt:   a.now(),
	}
}

func (a *Analyzer) insufficient(symbol string, price float64, have int) *models.Signal {
	return &models.Signal{
		Symbol:        symbol,
		Price:         price,
		Type:          models.SignalNeutral,
		Profile:       models.ProfileFull,
		Warnings:      []string{fmt.Sprintf("insufficient data: %d of %d candles", have, a.cfg.MinCandles)},
		Probabilities: a.cfg.probabilities(models.SignalNeutral, a.cfg.TrendADX),
		GeneratedAt:   a.now(),
	}
}
