package usecase

import (
	"context"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
	mid "CoinSim/internal/middleware"
)

// PriceCollector consumes the exchange tick stream and fans each print out
// to the simulation: live price snapshots, spot revaluation, futures
// mark-to-market, and 1m candle aggregation into the candle store.
type PriceCollector struct {
	stream  domrepo.MarketStream
	pipe    *mid.RealtimePipeline
	trading *TradingService
	market  *MarketDataService
	builder *CandleBuilder
	store   domrepo.CandleStore
	metrics domrepo.Metrics
}

// NewPriceCollector creates a new PriceCollector instance. The pipeline is
// optional; without it ticks are processed directly.
func NewPriceCollector(
	stream domrepo.MarketStream,
	pipe *mid.RealtimePipeline,
	trading *TradingService,
	market *MarketDataService,
	builder *CandleBuilder,
	store domrepo.CandleStore,
	metrics domrepo.Metrics,
) *PriceCollector {
	return &PriceCollector{
		stream:  stream,
		pipe:    pipe,
		trading: trading,
		market:  market,
		builder: builder,
		store:   store,
		metrics: metrics,
	}
}

var _ mid.Proc = (*PriceCollector)(nil)

// SetPipeline wires the buffering pipeline in front of Process. The pipeline
// needs the collector as its Proc, so it is attached after construction and
// must be in place before Start.
func (c *PriceCollector) SetPipeline(p *mid.RealtimePipeline) { c.pipe = p }

// IsConnected returns true if the market stream is connected.
func (c *PriceCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects the stream and launches the consume loop.
func (c *PriceCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

func (c *PriceCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case t := <-tickCh:
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.Process(ctx, t)
			}
		}
	}
}

// Process applies one tick to the whole simulation. Store failures are
// counted and dropped rather than returned, so a flaky ClickHouse cannot
// stall the price path.
func (c *PriceCollector) Process(ctx context.Context, t *models.Tick) error {
	c.metrics.RecordTick(t.Symbol)
	c.market.ApplyTick(*t)

	assetID, _ := c.market.AssetID(t.Symbol)
	c.trading.MarkPrice(ctx, assetID, t.Symbol, t.Price)

	if c.builder == nil {
		return nil
	}
	completed, late := c.builder.Add(*t)
	if late {
		c.metrics.RecordError("tick_late")
		return nil
	}
	if completed != nil && c.store != nil {
		if err := c.store.Store(ctx, completed); err != nil {
			c.metrics.RecordError("candle_store_write")
			return nil
		}
		c.metrics.RecordCandle(completed.Symbol, completed.Timeframe)
	}
	return nil
}

// Shutdown stops the pipeline, flushes partial candles, and closes the
// stream.
func (c *PriceCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	if c.builder != nil && c.store != nil {
		if partial := c.builder.Flush(); len(partial) > 0 {
			if err := c.store.StoreBatch(ctx, partial); err != nil {
				c.metrics.RecordError("candle_store_write")
			}
		}
	}
	return c.stream.Close()
}
