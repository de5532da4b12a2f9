package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"CoinSim/internal/service/scheduler"
	"CoinSim/internal/usecase"
	pkgch "CoinSim/pkg/clickhouse"
	"CoinSim/pkg/config"
	xhttp "CoinSim/pkg/http"
	pkgkafka "CoinSim/pkg/kafka"
	applogger "CoinSim/pkg/logger"
	pkgqueue "CoinSim/pkg/queue"
)

// App encapsulates the entire application lifecycle: restore state, start
// the collector, workers and HTTP server, then unwind in reverse on signal.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	collector  *usecase.PriceCollector
	trading    *usecase.TradingService
	sched      *scheduler.Scheduler
	jobs       *pkgqueue.RedisQueue
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	chClient   *pkgch.Client
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.PriceCollector,
	trading *usecase.TradingService,
	sched *scheduler.Scheduler,
	jobs *pkgqueue.RedisQueue,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		collector: collector,
		trading:   trading,
		sched:     sched,
		jobs:      jobs,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.cfg.Simulator.Restore {
		if err := a.trading.RestoreState(ctx); err != nil {
			a.l.Warn("state restore failed, starting fresh", applogger.Error(err))
		}
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	a.startCollector(ctx)
	a.startJournalSink()

	// Scan job workers
	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil {
			a.l.Error("job queue start error", applogger.Error(err))
		}
	}

	if a.sched != nil {
		if err := a.sched.Start(); err != nil {
			return fmt.Errorf("scheduler start: %w", err)
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// startCollector runs the websocket stream through the pipeline into the
// engines until the root context is cancelled.
func (a *App) startCollector(ctx context.Context) {
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			a.l.Error("collector error", applogger.Error(err))
		}
	}()
	a.l.Info("collector started", applogger.Strings("symbols", a.cfg.Stream.Symbols))
}

// startJournalSink consumes the journal topic back out of Kafka when a
// consumer is configured. Without one the journal is write-only.
func (a *App) startJournalSink() {
	if a.consumer == nil || a.kh == nil {
		return
	}
	a.consumer.RegisterHandler(a.kh)
	go func() {
		if err := a.consumer.Start(); err != nil {
			a.l.Error("journal sink error", applogger.Error(err))
		}
	}()
	a.l.Info("journal sink started", applogger.String("topic", a.kh.Topic()))
}

// shutdown stops intake first (scheduler, collector), then the serving
// surfaces, then snapshots state so the saved balance reflects the last
// processed tick.
func (a *App) shutdown(ctx context.Context) error {
	if a.sched != nil {
		a.sched.Stop()
	}

	if err := a.collector.Shutdown(ctx); err != nil {
		a.l.Warn("collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.jobs != nil {
		if err := a.jobs.Stop(shutdownCtx); err != nil {
			a.l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("journal sink stop error", applogger.Error(err))
		}
	}

	// Flush aggregated errors while the journal producer is still open.
	a.l.RemoveCollector()

	if a.trading != nil {
		if err := a.trading.SaveState(shutdownCtx); err != nil {
			a.l.Warn("state snapshot error", applogger.Error(err))
		}
		a.trading.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
