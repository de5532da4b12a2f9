package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler consumes messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig holds the reader and worker pool tuning knobs.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	AutoOffsetReset string
	WorkerCount     int
	BufferSize      int
	RetryMax        int
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	DLQTopic        string
	MinBytes        int
	MaxBytes        int
}

// WithConsumerBrokers sets the broker list.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.Brokers = append([]string(nil), brokers...)
	}
}

// WithConsumerGroupID sets the consumer group id.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.GroupID = groupID
	}
}

// WithConsumerAutoOffsetReset picks where a new group starts reading:
// "earliest" or "latest". Empty keeps earliest.
func WithConsumerAutoOffsetReset(reset string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if reset != "" {
			c.AutoOffsetReset = reset
		}
	}
}

// WithConsumerWorkers sets the number of handler goroutines.
func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
	}
}

// WithConsumerRetry sets per-message retry attempts and the backoff
// range between them.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerDLQ sets the dead-letter topic. Empty disables the DLQ,
// and exhausted messages are then left uncommitted.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.DLQTopic = topic
	}
}

// WithConsumerFetch sets the reader fetch size bounds in bytes.
func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.MinBytes = minBytes
		c.MaxBytes = maxBytes
	}
}

// WithConsumerBufferSize sets the worker queue capacity.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// Consumer reads registered topics through a bounded worker pool.
// Offsets are fetched without committing and committed only after a
// message is handled or dead-lettered, so a crash replays unfinished
// work instead of losing it.
type Consumer struct {
	cfg      *ConsumerConfig
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	hook     ConsumerHook
	dlq      *kafka.Writer

	msgChan  chan *message
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu        sync.Mutex
	partLocks map[string]map[int]*sync.Mutex
}

type message struct {
	topic string
	km    kafka.Message
}

// NewConsumer builds a consumer from the given options. Unset knobs
// fall back to a single worker with a small queue and three retries.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:         "default",
		AutoOffsetReset: "earliest",
		WorkerCount:     1,
		BufferSize:      10,
		RetryMax:        3,
		BackoffMin:      50 * time.Millisecond,
		BackoffMax:      2 * time.Second,
		MinBytes:        10e3,
		MaxBytes:        10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer: no brokers configured")
	}

	c := &Consumer{
		cfg:       cfg,
		readers:   make(map[string]*kafka.Reader),
		handlers:  make(map[string]MessageHandler),
		hook:      NoopHook{},
		msgChan:   make(chan *message, cfg.BufferSize),
		stopChan:  make(chan struct{}),
		partLocks: make(map[string]map[int]*sync.Mutex),
	}

	initConsumerMetrics()

	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}

	return c, nil
}

// RegisterHandler adds a handler for its topic. Register everything
// before Start; the handler map is read without locks afterwards.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		log.Printf("kafka consumer: handler already registered for %s, keeping the first", topic)
		return
	}
	c.handlers[topic] = handler
}

// WithConsumerHook installs a lifecycle hook. Nil keeps the current one.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// Start opens one reader per registered topic and launches the worker
// pool.
func (c *Consumer) Start() error {
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			StartOffset: startOffset(c.cfg.AutoOffsetReset),
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
		})
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.messageWorker()
	}
	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.fetchLoop(topic, reader)
	}

	log.Printf("kafka consumer: started topics=%d workers=%d group=%s",
		len(c.readers), c.cfg.WorkerCount, c.cfg.GroupID)
	return nil
}

// Stop shuts the consumer down. Queued messages are abandoned without a
// commit, so the group picks them up again later.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		close(c.stopChan)
		stopErr = c.waitForWg(ctx)
		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				log.Printf("kafka consumer: close reader %s: %v", topic, err)
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				log.Printf("kafka consumer: close dlq writer: %v", err)
			}
		}
	})
	return stopErr
}

func (c *Consumer) waitForWg(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for consumer shutdown: %w", ctx.Err())
	case <-done:
		return nil
	}
}

// fetchLoop pulls messages for one topic and feeds the worker queue.
// The short fetch deadline keeps the stop check responsive.
func (c *Consumer) fetchLoop(topic string, reader *kafka.Reader) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		km, err := reader.FetchMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				log.Printf("kafka consumer: fetch %s: %v", topic, err)
			}
			continue
		}

		select {
		case c.msgChan <- &message{topic: topic, km: km}:
			depth := float64(len(c.msgChan))
			consumerQueueDepth.WithLabelValues(topic).Set(depth)
			consumerQueueFullness.WithLabelValues(topic).Set(depth / float64(cap(c.msgChan)))
		case <-c.stopChan:
			return
		}
	}
}

func (c *Consumer) messageWorker() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopChan:
			return
		case msg := <-c.msgChan:
			c.process(msg)
			consumerQueueDepth.WithLabelValues(msg.topic).Set(float64(len(c.msgChan)))
		}
	}
}

// process runs one message through the hook, the handler, retries, and
// finally the commit or DLQ path.
func (c *Consumer) process(msg *message) {
	handler, ok := c.handlers[msg.topic]
	if !ok {
		return
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("kafka consumer: panic handling %s: %v", msg.topic, r)
		}
	}()

	// One in-flight message per partition keeps offsets in order even
	// with a larger worker pool.
	pl := c.partitionLock(msg.topic, msg.km.Partition)
	pl.Lock()
	defer pl.Unlock()

	done, err := c.handleWithRetry(handler, msg)
	if !done {
		return
	}
	if err != nil {
		log.Printf("kafka consumer: giving up on %s offset %d: %v", msg.topic, msg.km.Offset, err)
		if c.dlq == nil {
			// No DLQ to park it in. Leave the offset uncommitted so the
			// message comes back after a rebalance.
			return
		}
		c.deadLetter(msg)
	}
	c.commit(msg)
	consumerHandleSecs.WithLabelValues(msg.topic).Observe(time.Since(start).Seconds())
}

// handleWithRetry returns done=false when shutdown interrupted a
// backoff; the message must then stay uncommitted.
func (c *Consumer) handleWithRetry(handler MessageHandler, msg *message) (bool, error) {
	var (
		hctx  context.Context
		hmsg  kafka.Message
		hdata []byte
		err   error
	)
	for attempt := 0; ; attempt++ {
		hctx, hmsg, hdata, err = c.hook.BeforeHandle(context.Background(), msg.topic, msg.km, msg.km.Value)
		if err != nil {
			break
		}
		err = handler.Handle(hctx, hdata)
		c.hook.AfterHandle(hctx, msg.topic, hmsg, hdata, err)
		if err == nil || attempt >= c.cfg.RetryMax {
			break
		}
		c.hook.OnError(hctx, msg.topic, hmsg, hdata, err)
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt+1)):
		case <-c.stopChan:
			return false, err
		}
	}
	if err != nil {
		c.hook.OnError(hctx, msg.topic, hmsg, hdata, err)
	}
	return true, err
}

// deadLetter copies the message to the DLQ topic with its original
// headers plus the source topic, so trace ids survive the detour.
func (c *Consumer) deadLetter(msg *message) {
	headers := append([]kafka.Header(nil), msg.km.Headers...)
	headers = append(headers, kafka.Header{Key: "source_topic", Value: []byte(msg.topic)})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Key:     msg.km.Key,
		Value:   msg.km.Value,
		Time:    time.Now(),
		Headers: headers,
	})
	if err != nil {
		log.Printf("kafka consumer: dlq write for %s: %v", msg.topic, err)
	}
}

// commit marks the message done, retrying briefly. A lost commit is
// safe: the message is replayed after the next rebalance.
func (c *Consumer) commit(msg *message) {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = c.readers[msg.topic].CommitMessages(ctx, msg.km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	log.Printf("kafka consumer: commit %s offset %d: %v", msg.topic, msg.km.Offset, err)
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	byPart, ok := c.partLocks[topic]
	if !ok {
		byPart = make(map[int]*sync.Mutex)
		c.partLocks[topic] = byPart
	}
	lock, ok := byPart[partition]
	if !ok {
		lock = &sync.Mutex{}
		byPart[partition] = lock
	}
	return lock
}

func startOffset(reset string) int64 {
	if reset == "latest" {
		return kafka.LastOffset
	}
	return kafka.FirstOffset
}

// backoffWithJitter grows exponentially from min, caps at max, and
// subtracts up to half the delay so retries do not align.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	shift := uint(attempt - 1)
	if shift > 16 {
		shift = 16
	}
	delay := min * time.Duration(1<<shift)
	if delay > max || delay <= 0 {
		delay = max
	}
	if half := int64(delay / 2); half > 0 {
		delay -= time.Duration(rand.Int63n(half))
	}
	return delay
}

var (
	consumerMetricsOnce sync.Once

	consumerQueueDepth    *prometheus.GaugeVec
	consumerQueueFullness *prometheus.GaugeVec
	consumerHandleSecs    *prometheus.HistogramVec
)

func initConsumerMetrics() {
	consumerMetricsOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "coinsim_kafka_consumer_queue_depth", Help: "Messages waiting in the worker queue"},
			[]string{"topic"},
		)
		consumerQueueFullness = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "coinsim_kafka_consumer_queue_fullness", Help: "Worker queue utilization, len over cap"},
			[]string{"topic"},
		)
		consumerHandleSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "coinsim_kafka_consumer_handle_seconds", Help: "Handling time per message including retries"},
			[]string{"topic"},
		)
	})
}
