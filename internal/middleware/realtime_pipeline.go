package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
	"CoinSim/internal/service/ratelimit"
)

// Proc is the downstream a pipeline feeds.
type Proc interface {
	Process(ctx context.Context, t *models.Tick) error
}

// RealtimePipeline sits between the WebSocket stream and the simulator.
// Ticks are validated, throttled per symbol through a token bucket, and
// parked in an overflow buffer when downstream fails. A flush loop
// replays parked ticks in order once downstream recovers.
type RealtimePipeline struct {
	proc      Proc
	metrics   domrepo.Metrics
	limiter   *ratelimit.Limiter
	maxRPS    float64
	transform func(*models.Tick) *models.Tick

	overflow chan *models.Tick
	stopCh   chan struct{}

	mu      sync.Mutex
	running bool
}

type pipelineConfig struct {
	maxRPS    int
	bufSize   int
	transform func(*models.Tick) *models.Tick
}

type PipelineOption func(*pipelineConfig)

// WithMaxRPS caps accepted ticks per second per symbol. The bucket
// holds a full second of headroom, so a batchy feed is not clipped the
// way fixed spacing would clip it.
func WithMaxRPS(n int) PipelineOption {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.maxRPS = n
		}
	}
}

// WithBufferSize sets how many ticks the overflow buffer holds while
// downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

// WithTransform installs a hook that rewrites each tick before
// validation and throttling.
func WithTransform(fn func(*models.Tick) *models.Tick) PipelineOption {
	return func(c *pipelineConfig) {
		c.transform = fn
	}
}

// NewRealtimePipeline wires the pipeline in front of proc.
func NewRealtimePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	cfg := pipelineConfig{maxRPS: 20, bufSize: 1000}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RealtimePipeline{
		proc:      proc,
		metrics:   metrics,
		limiter:   ratelimit.New(),
		maxRPS:    float64(cfg.maxRPS),
		transform: cfg.transform,
		overflow:  make(chan *models.Tick, cfg.bufSize),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the flush loop that replays parked ticks.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	go p.flushLoop(ctx)
}

// Stop halts the flush loop. Anything still parked is discarded.
func (p *RealtimePipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.stopCh)
}

// Process validates, throttles, and forwards one tick. A downstream
// failure parks the tick and returns the error; a throttled tick is
// dropped silently.
func (p *RealtimePipeline) Process(ctx context.Context, t *models.Tick) error {
	start := time.Now()
	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		t = p.transform(t)
		if err := validateTick(t); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if p.maxRPS > 0 && !p.limiter.Allow(t.Symbol, p.maxRPS, p.maxRPS) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		p.park(t)
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// park buffers a tick for the flush loop. When the buffer is full the
// tick is dropped and counted.
func (p *RealtimePipeline) park(t *models.Tick) {
	select {
	case p.overflow <- t:
		p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.overflow)))
	default:
		p.metrics.RecordError("pipeline_buffer_full")
	}
}

// flushLoop drains the overflow buffer. A tick that keeps failing is
// retried in place with capped backoff rather than requeued, so replay
// preserves feed order.
func (p *RealtimePipeline) flushLoop(ctx context.Context) {
	backoff := 50 * time.Millisecond
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case t := <-p.overflow:
			for {
				if err := p.proc.Process(ctx, t); err == nil {
					backoff = 50 * time.Millisecond
					break
				}
				p.metrics.RecordError("pipeline_flush")
				if backoff < 2*time.Second {
					backoff *= 2
				}
				select {
				case <-time.After(backoff):
				case <-p.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func validateTick(t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("nil tick")
	}
	if t.Symbol == "" {
		return fmt.Errorf("tick without symbol")
	}
	if t.At.IsZero() {
		return fmt.Errorf("tick without timestamp")
	}
	if t.Price < 0 || t.Qty < 0 {
		return fmt.Errorf("tick with negative price or qty")
	}
	return nil
}
