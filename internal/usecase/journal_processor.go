package usecase

import (
	"context"
	"fmt"
	"time"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
)

// Journal backends selectable in config.
const (
	JournalBackendKafka      = "kafka"
	JournalBackendClickHouse = "clickhouse"
	JournalBackendNone       = "none"
)

// JournalProcessor routes engine events to the configured journal backend.
type JournalProcessor struct {
	pub     domrepo.Journal
	store   domrepo.Journal
	metrics domrepo.Metrics
	backend string
}

// NewJournalProcessor creates a new JournalProcessor instance.
func NewJournalProcessor(
	pub domrepo.Journal,
	store domrepo.Journal,
	metrics domrepo.Metrics,
	backend string,
) *JournalProcessor {
	return &JournalProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Process routes a single journal entry to the configured backend.
func (p *JournalProcessor) Process(ctx context.Context, e *models.JournalEntry) error {
	if e == nil {
		return fmt.Errorf("journal entry is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case JournalBackendKafka:
		err = p.pub.Append(ctx, e)
	case JournalBackendClickHouse:
		err = p.store.Append(ctx, e)
	case JournalBackendNone:
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("journal")
		return fmt.Errorf("journal entry: %w", err)
	}

	p.metrics.RecordJournalAppend(p.backend, string(e.Kind))
	p.metrics.RecordLatency("journal", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes multiple journal entries in one backend call.
func (p *JournalProcessor) ProcessBatch(ctx context.Context, entries []*models.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case JournalBackendKafka:
		err = p.pub.AppendBatch(ctx, entries)
	case JournalBackendClickHouse:
		err = p.store.AppendBatch(ctx, entries)
	case JournalBackendNone:
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("journal_batch")
		return fmt.Errorf("journal batch: %w", err)
	}

	for _, e := range entries {
		p.metrics.RecordJournalAppend(p.backend, string(e.Kind))
	}
	p.metrics.RecordLatency("journal_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *JournalProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
