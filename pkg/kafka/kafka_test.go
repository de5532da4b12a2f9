package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestEncodeValue(t *testing.T) {
	if got, err := encodeValue(nil); err != nil || got != nil {
		t.Errorf("nil = %v, %v", got, err)
	}

	raw := []byte(`{"already":"encoded"}`)
	if got, _ := encodeValue(raw); !bytes.Equal(got, raw) {
		t.Errorf("byte slice rewrapped: %s", got)
	}
	if got, _ := encodeValue(json.RawMessage(raw)); !bytes.Equal(got, raw) {
		t.Errorf("raw message rewrapped: %s", got)
	}
	if got, _ := encodeValue("plain"); string(got) != "plain" {
		t.Errorf("string = %q", got)
	}

	type payload struct {
		Symbol string `json:"symbol"`
	}
	got, err := encodeValue(payload{Symbol: "BTC"})
	if err != nil {
		t.Fatalf("struct encode: %v", err)
	}
	if string(got) != `{"symbol":"BTC"}` {
		t.Errorf("struct = %s", got)
	}

	if _, err := encodeValue(make(chan int)); err == nil {
		t.Error("want error for unmarshalable value")
	}
}

func TestParseCompression(t *testing.T) {
	cases := map[string]kafka.Compression{
		"snappy":  kafka.Snappy,
		"lz4":     kafka.Lz4,
		"zstd":    kafka.Zstd,
		"gzip":    kafka.Gzip,
		"":        kafka.Gzip,
		"brotli?": kafka.Gzip,
	}
	for name, want := range cases {
		if got := parseCompression(name); got != want {
			t.Errorf("parseCompression(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestStartOffset(t *testing.T) {
	if got := startOffset("latest"); got != kafka.LastOffset {
		t.Errorf("latest = %d", got)
	}
	for _, reset := range []string{"earliest", "", "bogus"} {
		if got := startOffset(reset); got != kafka.FirstOffset {
			t.Errorf("startOffset(%q) = %d, want FirstOffset", reset, got)
		}
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 50*time.Millisecond, 2*time.Second
	for attempt := 1; attempt <= 64; attempt++ {
		got := backoffWithJitter(min, max, attempt)
		if got <= 0 || got > max {
			t.Fatalf("attempt %d: backoff %v outside (0, %v]", attempt, got, max)
		}
	}
}

func TestBackoffWithJitterDegenerateInputs(t *testing.T) {
	// Zero min falls back to a sane floor; max below min is raised to min.
	if got := backoffWithJitter(0, 0, 1); got <= 0 || got > 50*time.Millisecond {
		t.Errorf("zero config backoff = %v", got)
	}
	if got := backoffWithJitter(time.Second, time.Millisecond, 3); got <= 0 || got > time.Second {
		t.Errorf("inverted config backoff = %v", got)
	}
	// Huge attempts must not overflow into negatives.
	if got := backoffWithJitter(time.Second, time.Minute, 100000); got <= 0 || got > time.Minute {
		t.Errorf("huge attempt backoff = %v", got)
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatal("want error without brokers")
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	if _, err := NewConsumer(); err == nil {
		t.Fatal("want error without brokers")
	}
}

func TestPublishEncodesBeforeWriting(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	// Encode failure surfaces before any network write happens.
	if err := p.Publish(context.Background(), "t", nil, make(chan int)); err == nil {
		t.Error("want encode error")
	}
}

func TestPublishBatchEmptyIsNoop(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	if err := p.PublishBatch(context.Background(), "t", nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}
