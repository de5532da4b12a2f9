package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"CoinSim/internal/domain/models"
)

func tradeEntry() *models.JournalEntry {
	return &models.JournalEntry{
		Kind:  models.JournalTrade,
		Trade: &models.Trade{ID: "trade-1", Symbol: "BTC", Type: models.TradeBuy},
	}
}

func TestJournalRoutesToKafka(t *testing.T) {
	pub, store := &fakeJournal{}, &fakeJournal{}
	metrics := newFakeMetrics()
	p := NewJournalProcessor(pub, store, metrics, JournalBackendKafka)

	if err := p.Process(context.Background(), tradeEntry()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if pub.len() != 1 || store.len() != 0 {
		t.Errorf("pub=%d store=%d, want 1/0", pub.len(), store.len())
	}
	if got := metrics.count("journal:kafka:trade"); got != 1 {
		t.Errorf("append counter = %d, want 1", got)
	}
	if got := metrics.count("latency:journal"); got != 1 {
		t.Errorf("latency counter = %d, want 1", got)
	}
}

func TestJournalRoutesToClickHouse(t *testing.T) {
	pub, store := &fakeJournal{}, &fakeJournal{}
	p := NewJournalProcessor(pub, store, newFakeMetrics(), JournalBackendClickHouse)

	if err := p.Process(context.Background(), tradeEntry()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if pub.len() != 0 || store.len() != 1 {
		t.Errorf("pub=%d store=%d, want 0/1", pub.len(), store.len())
	}
}

func TestJournalBackendNoneIsNoop(t *testing.T) {
	pub, store := &fakeJournal{}, &fakeJournal{}
	metrics := newFakeMetrics()
	p := NewJournalProcessor(pub, store, metrics, JournalBackendNone)

	if err := p.Process(context.Background(), tradeEntry()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if pub.len() != 0 || store.len() != 0 {
		t.Error("entry reached a backend with journaling disabled")
	}
	if got := metrics.count("journal:none:trade"); got != 0 {
		t.Errorf("append counter = %d, want 0", got)
	}
}

func TestJournalUnknownBackend(t *testing.T) {
	metrics := newFakeMetrics()
	p := NewJournalProcessor(&fakeJournal{}, &fakeJournal{}, metrics, "postgres")

	err := p.Process(context.Background(), tradeEntry())
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("err = %v, want unknown backend", err)
	}
	if got := metrics.count("error:journal"); got != 1 {
		t.Errorf("error counter = %d, want 1", got)
	}
}

func TestJournalNilEntry(t *testing.T) {
	p := NewJournalProcessor(&fakeJournal{}, &fakeJournal{}, newFakeMetrics(), JournalBackendKafka)
	if err := p.Process(context.Background(), nil); err == nil {
		t.Fatal("nil entry accepted")
	}
}

func TestJournalAppendFailureCounted(t *testing.T) {
	pub := &fakeJournal{err: errors.New("broker down")}
	metrics := newFakeMetrics()
	p := NewJournalProcessor(pub, &fakeJournal{}, metrics, JournalBackendKafka)

	err := p.Process(context.Background(), tradeEntry())
	if err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Fatalf("err = %v, want wrapped broker error", err)
	}
	if got := metrics.count("error:journal"); got != 1 {
		t.Errorf("error counter = %d, want 1", got)
	}
}

func TestJournalBatch(t *testing.T) {
	pub := &fakeJournal{}
	metrics := newFakeMetrics()
	p := NewJournalProcessor(pub, &fakeJournal{}, metrics, JournalBackendKafka)

	entries := []*models.JournalEntry{
		tradeEntry(),
		tradeEntry(),
		{Kind: models.JournalPosition, Position: &models.FuturesPosition{ID: "pos-1"}},
	}
	if err := p.ProcessBatch(context.Background(), entries); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if pub.batches != 1 {
		t.Errorf("batches = %d, want 1", pub.batches)
	}
	if pub.len() != 3 {
		t.Errorf("entries = %d, want 3", pub.len())
	}
	// One append count per entry, by kind.
	if got := metrics.count("journal:kafka:trade"); got != 2 {
		t.Errorf("trade appends = %d, want 2", got)
	}
	if got := metrics.count("journal:kafka:position"); got != 1 {
		t.Errorf("position appends = %d, want 1", got)
	}
}

func TestJournalBatchEmptyIsNoop(t *testing.T) {
	pub := &fakeJournal{}
	p := NewJournalProcessor(pub, &fakeJournal{}, newFakeMetrics(), JournalBackendKafka)
	if err := p.ProcessBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if pub.batches != 0 {
		t.Error("empty batch reached the backend")
	}
}

func TestJournalCloseClosesBackends(t *testing.T) {
	pub, store := &fakeJournal{}, &fakeJournal{}
	p := NewJournalProcessor(pub, store, newFakeMetrics(), JournalBackendKafka)
	p.Close()
	if !pub.closed || !store.closed {
		t.Errorf("closed pub=%t store=%t, want both", pub.closed, store.closed)
	}
}
