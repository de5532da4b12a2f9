package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Message is one key/value pair in a batch publish. A nil Key lets the
// balancer spread the message; a set Key pins its partition.
type Message struct {
	Key   []byte
	Value interface{}
}

// Producer wraps a kafka-go writer with JSON encoding and publish
// metrics. One Producer serves any number of topics.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer builds a producer from the given options. Unset knobs
// fall back to synchronous batched writes acknowledged by all in-sync
// replicas.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka producer: no brokers configured")
	}

	var balancer kafka.Balancer = &kafka.LeastBytes{}
	if cfg.HashByKey {
		balancer = &kafka.Hash{}
	}

	initProducerMetrics()

	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     balancer,
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			MaxAttempts:  cfg.MaxAttempts,
			WriteTimeout: cfg.WriteTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			BatchSize:    cfg.BatchSize,
			BatchBytes:   int64(cfg.BatchBytes),
			BatchTimeout: cfg.BatchTimeout,
			Async:        cfg.Async,
			Compression:  parseCompression(cfg.Compression),
		},
	}, nil
}

// Publish encodes value and writes it to topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	data, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", topic, err)
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: data})
	observePublish(topic, 1, len(data), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishBatch encodes and writes all messages to topic in a single
// writer call, so they share one round trip and one error.
func (p *Producer) PublishBatch(ctx context.Context, topic string, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	batch := make([]kafka.Message, 0, len(msgs))
	size := 0
	for i, m := range msgs {
		data, err := encodeValue(m.Value)
		if err != nil {
			return fmt.Errorf("encode message %d for %s: %w", i, topic, err)
		}
		size += len(data)
		batch = append(batch, kafka.Message{Topic: topic, Key: m.Key, Value: data})
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx, batch...)
	observePublish(topic, len(batch), size, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish batch of %d to %s: %w", len(batch), topic, err)
	}
	return nil
}

// Close flushes pending batches and releases writer connections.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// encodeValue turns a payload into wire bytes. Byte slices and strings
// pass through untouched so pre-encoded payloads are not wrapped in a
// second JSON layer.
func encodeValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}

// parseCompression maps a config name to a kafka codec. Unknown names
// fall back to gzip rather than failing startup.
func parseCompression(name string) kafka.Compression {
	switch name {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

var (
	producerMetricsOnce sync.Once

	producerMsgsTotal   *prometheus.CounterVec
	producerErrsTotal   *prometheus.CounterVec
	producerBytesTotal  *prometheus.CounterVec
	producerPublishSecs *prometheus.HistogramVec
)

func initProducerMetrics() {
	producerMetricsOnce.Do(func() {
		producerMsgsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "coinsim_kafka_producer_messages_total", Help: "Messages published per topic"},
			[]string{"topic"},
		)
		producerErrsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "coinsim_kafka_producer_errors_total", Help: "Failed publishes per topic"},
			[]string{"topic"},
		)
		producerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "coinsim_kafka_producer_bytes_total", Help: "Encoded payload bytes published per topic"},
			[]string{"topic"},
		)
		producerPublishSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinsim_kafka_producer_publish_seconds",
				Help:    "Publish round-trip time per topic",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"topic"},
		)
	})
}

// observePublish records one writer call. Errors count the whole call
// once; successes count every message in it.
func observePublish(topic string, count, bytes int, elapsed time.Duration, err error) {
	if err != nil {
		producerErrsTotal.WithLabelValues(topic).Inc()
		return
	}
	producerMsgsTotal.WithLabelValues(topic).Add(float64(count))
	producerBytesTotal.WithLabelValues(topic).Add(float64(bytes))
	producerPublishSecs.WithLabelValues(topic).Observe(elapsed.Seconds())
}
