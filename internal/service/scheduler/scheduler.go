package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"CoinSim/internal/usecase"
	applogger "CoinSim/pkg/logger"
)

// Config holds the background job intervals.
type Config struct {
	MarketRefreshEvery time.Duration
	ScanEvery          time.Duration
	FundingEvery       time.Duration
	SnapshotEvery      time.Duration
}

// Scheduler runs the recurring background jobs: market snapshot refresh,
// signal scan enqueue, funding-fee sweeps and state snapshots. Job failures
// are logged and retried on the next interval, never fatal.
type Scheduler struct {
	cfg     Config
	market  *usecase.MarketDataService
	scanner *usecase.SignalScanner
	trading *usecase.TradingService
	l       *applogger.Logger
	s       *gocron.Scheduler
}

// New creates a new Scheduler instance.
func New(
	cfg Config,
	market *usecase.MarketDataService,
	scanner *usecase.SignalScanner,
	trading *usecase.TradingService,
	l *applogger.Logger,
) *Scheduler {
	if cfg.MarketRefreshEvery <= 0 {
		cfg.MarketRefreshEvery = 60 * time.Second
	}
	if cfg.ScanEvery <= 0 {
		cfg.ScanEvery = 5 * time.Minute
	}
	if cfg.FundingEvery <= 0 {
		cfg.FundingEvery = 8 * time.Hour
	}
	if cfg.SnapshotEvery <= 0 {
		cfg.SnapshotEvery = 5 * time.Minute
	}
	return &Scheduler{
		cfg:     cfg,
		market:  market,
		scanner: scanner,
		trading: trading,
		l:       l,
		s:       gocron.NewScheduler(time.UTC),
	}
}

// Start registers all jobs and runs the scheduler in the background.
func (s *Scheduler) Start() error {
	if _, err := s.s.Every(s.cfg.MarketRefreshEvery).Do(s.refreshMarkets); err != nil {
		return fmt.Errorf("schedule market refresh: %w", err)
	}
	if _, err := s.s.Every(s.cfg.ScanEvery).Do(s.enqueueScans); err != nil {
		return fmt.Errorf("schedule signal scan: %w", err)
	}
	if _, err := s.s.Every(s.cfg.FundingEvery).Do(s.fundingSweep); err != nil {
		return fmt.Errorf("schedule funding sweep: %w", err)
	}
	if _, err := s.s.Every(s.cfg.SnapshotEvery).Do(s.snapshotState); err != nil {
		return fmt.Errorf("schedule state snapshot: %w", err)
	}
	s.s.StartAsync()
	s.l.Info("scheduler started",
		applogger.Duration("market_refresh", s.cfg.MarketRefreshEvery),
		applogger.Duration("scan", s.cfg.ScanEvery),
		applogger.Duration("funding", s.cfg.FundingEvery),
		applogger.Duration("snapshot", s.cfg.SnapshotEvery),
	)
	return nil
}

// Stop halts the scheduler. Running jobs finish their current invocation.
func (s *Scheduler) Stop() {
	s.s.Stop()
	s.l.Info("scheduler stopped")
}

func (s *Scheduler) refreshMarkets() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.market.RefreshMarkets(ctx); err != nil {
		s.l.Warn("market refresh failed", applogger.Error(err))
	}
}

func (s *Scheduler) enqueueScans() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := s.scanner.Enqueue(ctx, nil)
	if err != nil {
		s.l.Warn("scan enqueue failed", applogger.Int("queued", n), applogger.Error(err))
		return
	}
	s.l.Debug("scan jobs enqueued", applogger.Int("queued", n))
}

func (s *Scheduler) fundingSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n := s.trading.FundingSweep(ctx)
	if n > 0 {
		s.l.Info("funding fees applied", applogger.Int("positions", n))
	}
}

func (s *Scheduler) snapshotState() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.trading.SaveState(ctx); err != nil {
		s.l.Warn("state snapshot failed", applogger.Error(err))
	}
}
