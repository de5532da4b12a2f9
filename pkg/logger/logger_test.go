package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakePublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedLogEntry
}

func (p *fakePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	logs, ok := payload.([]AggregatedLogEntry)
	if !ok {
		return fmt.Errorf("unexpected payload %T", payload)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, logs)
	return nil
}

func (p *fakePublisher) all() [][]AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]AggregatedLogEntry, len(p.batches))
	copy(out, p.batches)
	return out
}

func collectorConfig(pub Publisher) *CollectionConfig {
	return &CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "logs.errors",
		Publisher:      pub,
	}
}

func byMessage(t *testing.T, batch []AggregatedLogEntry) map[string]AggregatedLogEntry {
	t.Helper()
	out := make(map[string]AggregatedLogEntry, len(batch))
	for _, e := range batch {
		out[e.Message] = e
	}
	return out
}

func TestCollectorAggregatesRepeats(t *testing.T) {
	pub := &fakePublisher{}
	c := NewLogCollector(collectorConfig(pub))

	// Fresh map per call: dedupe must key on content, not identity.
	for i := 0; i < 3; i++ {
		c.AddLog("error", "feed stalled", map[string]interface{}{"symbol": "BTCUSDT"}, "svc/feed.go:42")
	}
	c.AddLog("error", "tick dropped", map[string]interface{}{"symbol": "ETHUSDT"}, "svc/feed.go:60")

	c.Close()

	batches := pub.all()
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
	if got := pub.topics[0]; got != "logs.errors" {
		t.Fatalf("topic = %q, want logs.errors", got)
	}

	entries := byMessage(t, batches[0])
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	stalled := entries["feed stalled"]
	if stalled.Count != 3 {
		t.Fatalf("count = %d, want 3", stalled.Count)
	}
	if stalled.Level != "error" {
		t.Fatalf("level = %q, want error", stalled.Level)
	}
	if stalled.Fields["symbol"] != "BTCUSDT" {
		t.Fatalf("symbol = %v", stalled.Fields["symbol"])
	}
	if stalled.LastSeen.Before(stalled.FirstSeen) {
		t.Fatalf("last seen %v before first seen %v", stalled.LastSeen, stalled.FirstSeen)
	}
	if dropped := entries["tick dropped"]; dropped.Count != 1 {
		t.Fatalf("count = %d, want 1", dropped.Count)
	}
}

func TestCollectorFlushOnThreshold(t *testing.T) {
	pub := &fakePublisher{}
	cfg := collectorConfig(pub)
	cfg.CountThreshold = 2
	c := NewLogCollector(cfg)

	c.AddLog("error", "journal append failed", nil, "a.go:1")
	c.AddLog("error", "state save failed", nil, "b.go:2")
	c.AddLog("error", "feed stalled", nil, "c.go:3")
	c.Close()

	// Threshold flush took the first two, Close took the straggler.
	// Publish goroutines race, so match batch sizes order-free.
	batches := pub.all()
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}
	sizes := []int{len(batches[0]), len(batches[1])}
	sort.Ints(sizes)
	if sizes[0] != 1 || sizes[1] != 2 {
		t.Fatalf("batch sizes = %v, want [1 2]", sizes)
	}
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	pub := &fakePublisher{}
	cfg := collectorConfig(pub)
	cfg.TimeInterval = 20 * time.Millisecond
	c := NewLogCollector(cfg)
	defer c.Close()

	c.AddLog("error", "feed stalled", nil, "a.go:1")

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.all()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no flush within deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCollectorConfigDefaults(t *testing.T) {
	cfg := &CollectionConfig{Topic: "logs.errors", Publisher: &fakePublisher{}}
	c := NewLogCollector(cfg)
	defer c.Close()

	if cfg.TimeInterval != 30*time.Second {
		t.Fatalf("interval = %v, want 30s", cfg.TimeInterval)
	}
	if cfg.CountThreshold != 100 {
		t.Fatalf("threshold = %d, want 100", cfg.CountThreshold)
	}
}

func TestErrorFeedsCollector(t *testing.T) {
	l, err := New(&Config{Level: "error", Format: "json", Output: filepath.Join(t.TempDir(), "app.log")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pub := &fakePublisher{}
	l.AddCollector(collectorConfig(pub))

	l.Error("journal append failed",
		String("backend", "kafka"),
		Error(errors.New("broker down")),
	)
	l.Info("scan finished", Int("signals", 4))

	l.RemoveCollector()

	batches := pub.all()
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
	if len(batches[0]) != 1 {
		t.Fatalf("entries = %d, want 1: info lines must not be collected", len(batches[0]))
	}

	got := batches[0][0]
	if got.Level != "error" || got.Message != "journal append failed" || got.Count != 1 {
		t.Fatalf("entry = %+v", got)
	}
	wantFields := map[string]interface{}{
		"backend": "kafka",
		"error":   "broker down",
	}
	if diff := cmp.Diff(wantFields, got.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(got.Caller, "logger/logger_test.go:") {
		t.Fatalf("caller = %q", got.Caller)
	}
}

func TestErrorNilErrField(t *testing.T) {
	l, err := New(&Config{Level: "error", Format: "json", Output: filepath.Join(t.TempDir(), "app.log")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pub := &fakePublisher{}
	l.AddCollector(collectorConfig(pub))

	l.Error("tick dropped", Error(nil))
	l.RemoveCollector()

	batches := pub.all()
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("batches = %v", batches)
	}
	wantFields := map[string]interface{}{"error": nil}
	if diff := cmp.Diff(wantFields, batches[0][0].Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestAddCollectorReplacesExisting(t *testing.T) {
	l, err := New(&Config{Level: "error", Format: "json", Output: filepath.Join(t.TempDir(), "app.log")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, second := &fakePublisher{}, &fakePublisher{}

	l.AddCollector(collectorConfig(first))
	l.Error("feed stalled")

	// Replacing closes the old collector, which flushes it.
	l.AddCollector(collectorConfig(second))
	l.Error("state save failed")
	l.RemoveCollector()

	// Detached: must not panic, must not publish anywhere.
	l.Error("after detach")

	if got := first.all(); len(got) != 1 || got[0][0].Message != "feed stalled" {
		t.Fatalf("first collector batches = %v", got)
	}
	if got := second.all(); len(got) != 1 || got[0][0].Message != "state save failed" {
		t.Fatalf("second collector batches = %v", got)
	}
}

func TestLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Info("engine started", String("mode", "sim"), Int("positions", 2))

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var line map[string]interface{}
	if err := json.Unmarshal(raw, &line); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	if line["level"] != "info" || line["message"] != "engine started" {
		t.Fatalf("line = %v", line)
	}
	if line["mode"] != "sim" {
		t.Fatalf("mode = %v", line["mode"])
	}
	if line["positions"] != float64(2) {
		t.Fatalf("positions = %v", line["positions"])
	}
	if _, ok := line["time"]; !ok {
		t.Fatal("missing time field")
	}
	if _, ok := line["caller"]; !ok {
		t.Fatal("missing caller field")
	}
}

func TestLoggerLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "error", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Info("quiet")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("info written at error level: %q", raw)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "verbose", Format: "json", Output: "stdout"})
	if err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewBadOutputPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "app.log")
	_, err := New(&Config{Level: "info", Format: "json", Output: path})
	if err == nil || !strings.Contains(err.Error(), "open log file") {
		t.Fatalf("err = %v", err)
	}
}

func TestFieldKeyValues(t *testing.T) {
	cases := []struct {
		name  string
		field Field
		key   string
		value interface{}
	}{
		{"string", String("symbol", "BTCUSDT"), "symbol", "BTCUSDT"},
		{"strings", Strings("symbols", []string{"BTCUSDT", "ETHUSDT"}), "symbols", "BTCUSDT, ETHUSDT"},
		{"int", Int("count", 7), "count", 7},
		{"int64", Int64("ts", 1717243200000), "ts", int64(1717243200000)},
		{"duration", Duration("elapsed", 1500*time.Millisecond), "elapsed", 1500},
		{"error", Error(errors.New("broker down")), "error", "broker down"},
		{"nil error", Error(nil), "error", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, value := tc.field.GetKeyValue()
			if key != tc.key {
				t.Fatalf("key = %q, want %q", key, tc.key)
			}
			if !cmp.Equal(tc.value, value) {
				t.Fatalf("value = %v (%T), want %v (%T)", value, value, tc.value, tc.value)
			}
		})
	}
}
