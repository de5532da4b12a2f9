package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
	pkgkafka "CoinSim/pkg/kafka"
)

// KafkaJournalHandler consumes journal events from Kafka and persists them
// into the ClickHouse journal.
type KafkaJournalHandler struct {
	topic   string
	storage domrepo.Journal
	metrics domrepo.Metrics
}

func NewKafkaJournalHandler(topic string, storage domrepo.Journal, metrics domrepo.Metrics) *KafkaJournalHandler {
	return &KafkaJournalHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaJournalHandler) Topic() string { return h.topic }

// incoming message schema: models.JournalEntry marshaled with default field
// names, produced by the kafka journal publisher.
func (h *KafkaJournalHandler) Handle(ctx context.Context, b []byte) error {
	var e models.JournalEntry
	if err := json.Unmarshal(b, &e); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if e.Kind != models.JournalTrade && e.Kind != models.JournalPosition {
		h.metrics.RecordError("consumer_kind")
		return fmt.Errorf("unknown journal kind %q", e.Kind)
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("journal_e2e_seconds", time.Since(e.At).Seconds())

	start := time.Now()
	err := h.storage.Append(ctx, &e)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordJournalAppend("clickhouse", string(e.Kind))
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaJournalHandler)(nil)
