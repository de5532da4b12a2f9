package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"CoinSim/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// QueueMode defines which halves of the queue a process runs.
type QueueMode int

const (
	ModeProducerConsumer QueueMode = iota
	ModeProducerOnly
	ModeConsumerOnly
)

func (m QueueMode) String() string {
	switch m {
	case ModeProducerOnly:
		return "producer-only"
	case ModeConsumerOnly:
		return "consumer-only"
	default:
		return "producer-consumer"
	}
}

// How many due retries move back to the main queue per sweep.
const retryBatch = 128

// RedisQueue is a Redis-list backed job queue. Messages are LPushed to
// a list and BRPopped by a worker pool; failed messages wait in a
// sorted set scored by their retry time, and exhausted ones land on a
// dead letter list.
type RedisQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	client    *redis.Client
	mode      QueueMode
	keyPrefix string

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool

	quit   chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keyPrefix = prefix
	}
}

// NewRedisQueue creates a queue on an existing Redis client. Call Start
// before publishing.
func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, mode QueueMode, opts ...RedisQueueOption) *RedisQueue {
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		logger:    lgr,
		config:    config,
		client:    client,
		mode:      mode,
		keyPrefix: "coinsim:queue",
		jobs:      make(map[string]Job),
		quit:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// RegisterJob binds the consumer for one message type, first come
// first served. Producer-only queues have no consumers to bind.
func (r *RedisQueue) RegisterJob(job Job) {
	if r.mode == ModeProducerOnly {
		r.logger.Warn("queue: no consumers in producer-only mode, dropping registration",
			logger.String("job", job.Name()))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, taken := r.jobs[job.Type()]; taken {
		r.logger.Warn("queue: type already bound",
			logger.String("type", job.Type()),
			logger.String("bound_to", prev.Name()),
			logger.String("rejected", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("queue: job bound",
		logger.String("type", job.Type()),
		logger.String("job", job.Name()))
}

// Start verifies the Redis connection and launches the worker pool.
func (r *RedisQueue) Start() error {
	if err := r.ping(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	r.running = true
	r.mu.Unlock()

	if r.mode == ModeProducerOnly {
		r.logger.Info("queue: publisher ready",
			logger.String("addr", r.client.Options().Addr))
		return nil
	}

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retrySweeper()

	r.logger.Info("queue: running",
		logger.Int("workers", r.config.Workers),
		logger.String("addr", r.client.Options().Addr),
		logger.String("mode", r.mode.String()))
	return nil
}

func (r *RedisQueue) ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Stop drains the workers, waiting up to the context deadline.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	if r.mode != ModeProducerOnly {
		close(r.quit)
	}
	r.mu.Unlock()

	if err := r.awaitDrain(ctx); err != nil {
		r.logger.Warn("queue: stop timed out", logger.Error(err))
		return err
	}
	r.logger.Info("queue: stopped")
	return nil
}

func (r *RedisQueue) awaitDrain(ctx context.Context) error {
	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("queue workers still busy: %w", ctx.Err())
	case <-drained:
		return nil
	}
}

// Enqueue pushes one message. When QueueSize is set, publishing into a
// backlog at or past the bound is refused so bursts cannot grow the
// list without limit.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running {
		return fmt.Errorf("queue not running")
	}
	if r.mode != ModeProducerOnly {
		if _, bound := r.jobs[msgType]; !bound {
			return fmt.Errorf("no job registered for type: %s", msgType)
		}
	}
	if r.config.QueueSize > 0 {
		depth, err := r.client.LLen(ctx, r.queueKey()).Result()
		if err == nil && depth >= int64(r.config.QueueSize) {
			return fmt.Errorf("queue full: %d pending", depth)
		}
	}

	data, err := json.Marshal(Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// PublishMessage implements QueueService.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	return r.Enqueue(ctx, msgType, payload)
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()

	key := r.queueKey()
	for {
		select {
		case <-r.quit:
			r.logger.Info("queue: worker done", logger.Int("worker_id", id))
			return
		case <-r.ctx.Done():
			return
		default:
			r.popAndProcess(key)
		}
	}
}

func (r *RedisQueue) popAndProcess(key string) {
	// The context deadline sits past the BRPop block time so an idle
	// poll returns redis.Nil, not a deadline error.
	ctx, cancel := context.WithTimeout(r.ctx, 2*time.Second)
	defer cancel()

	result, err := r.client.BRPop(ctx, time.Second, key).Result()
	switch {
	case errors.Is(err, redis.Nil),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return
	case err != nil:
		r.logger.Error("queue: brpop", logger.Error(err))
		time.Sleep(time.Second)
		return
	case len(result) < 2:
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		r.logger.Error("queue: undecodable message dropped", logger.Error(err))
		return
	}
	r.process(msg)
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, bound := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !bound {
		r.logger.Error("queue: message type has no job",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return
	}

	start := time.Now()
	err := job.Handle(r.ctx, rawPayload(msg.Payload))
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		r.logger.Warn("queue: handle cut short by shutdown",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	default:
		r.retryOrBury(msg, job, err)
	}
}

// rawPayload rewraps a JSON-decoded payload so ParsePayload can decode
// it into the job's concrete type.
func rawPayload(payload interface{}) interface{} {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return payload
	}
	b, err := json.Marshal(m)
	if err != nil {
		return payload
	}
	return json.RawMessage(b)
}

func (r *RedisQueue) retryOrBury(msg Message, job Job, err error) {
	r.logger.Error("queue: handle failed",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts >= r.config.RetryLimit {
		r.logger.Error("queue: retries exhausted, burying",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()))
		r.bury(msg)
		return
	}

	msg.Attempts++
	retryAt := time.Now().Add(r.config.RetryDelay)
	data, merr := json.Marshal(msg)
	if merr != nil {
		r.logger.Error("queue: marshal retry", logger.Error(merr))
		return
	}
	zerr := r.client.ZAdd(r.ctx, r.retryKey(), redis.Z{
		Score:  float64(retryAt.Unix()),
		Member: data,
	}).Err()
	if zerr != nil {
		r.logger.Error("queue: schedule retry", logger.Error(zerr))
		return
	}
	r.logger.Info("queue: retry scheduled",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts),
		logger.String("retry_at", retryAt.Format(time.RFC3339)))
}

func (r *RedisQueue) bury(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("queue: marshal dlq", logger.Error(err))
		return
	}
	if err := r.client.LPush(r.ctx, r.dlqKey(), data).Err(); err != nil {
		r.logger.Error("queue: lpush dlq", logger.Error(err))
	}
}

func (r *RedisQueue) retrySweeper() {
	defer r.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.promoteDue()
		}
	}
}

// promoteDue moves messages whose retry time has passed back onto the
// main queue, at most retryBatch per sweep.
func (r *RedisQueue) promoteDue() {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{
		Min:   "0",
		Max:   now,
		Count: retryBatch,
	}).Result()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("queue: fetch due retries", logger.Error(err))
		}
		return
	}
	if len(due) == 0 {
		return
	}

	pipe := r.client.TxPipeline()
	for _, member := range due {
		pipe.ZRem(r.ctx, r.retryKey(), member)
		pipe.LPush(r.ctx, r.queueKey(), member)
	}
	if _, err := pipe.Exec(r.ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("queue: promote retries", logger.Error(err))
		}
		return
	}
	r.logger.Info("queue: retries promoted", logger.Int("count", len(due)))
}

func (r *RedisQueue) queueKey() string {
	return r.keyPrefix + ":messages"
}

func (r *RedisQueue) retryKey() string {
	return r.keyPrefix + ":retry"
}

func (r *RedisQueue) dlqKey() string {
	return r.keyPrefix + ":dlq"
}
