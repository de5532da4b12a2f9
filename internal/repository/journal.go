package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
	pkgch "CoinSim/pkg/clickhouse"
	pkgkafka "CoinSim/pkg/kafka"
)

const journalTable = "coinsim.journal"

var journalSchema = []string{
	`CREATE DATABASE IF NOT EXISTS coinsim`,
	`CREATE TABLE IF NOT EXISTS coinsim.journal (
        kind    LowCardinality(String),
        at      DateTime64(3),
        ref_id  String,
        symbol  String,
        payload String
    ) ENGINE = MergeTree
    ORDER BY (kind, at)`,
}

// KafkaJournal publishes journal entries to a Kafka topic, keyed by symbol
// so one symbol's history stays ordered within a partition. Values are the
// entry marshaled as-is; the consumer on the other side decodes the same
// struct.
type KafkaJournal struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaJournal creates a Kafka-backed journal.
func NewKafkaJournal(producer *pkgkafka.Producer, topic string) *KafkaJournal {
	return &KafkaJournal{producer: producer, topic: topic}
}

func (j *KafkaJournal) Append(ctx context.Context, e *models.JournalEntry) error {
	if e == nil {
		return nil
	}
	return j.producer.Publish(ctx, j.topic, []byte(journalSymbol(e)), e)
}

func (j *KafkaJournal) AppendBatch(ctx context.Context, entries []*models.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(journalSymbol(e)),
			Value: e,
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	return j.producer.PublishBatch(ctx, j.topic, msgs)
}

func (j *KafkaJournal) Close() error {
	if j.producer != nil {
		return j.producer.Close()
	}
	return nil
}

// CHJournal lands journal entries in ClickHouse directly, used without a
// broker in between and by the Kafka consumer's storage side.
type CHJournal struct {
	client *pkgch.Client
	db     *sql.DB
}

// NewCHJournal creates a ClickHouse-backed journal.
func NewCHJournal(ch *pkgch.Client) *CHJournal {
	return &CHJournal{client: ch, db: ch.DB()}
}

// Init ensures the journal table exists.
func (j *CHJournal) Init(ctx context.Context) error {
	if err := j.client.InitSchema(ctx, journalSchema); err != nil {
		return fmt.Errorf("journal schema: %w", err)
	}
	return nil
}

func (j *CHJournal) Append(ctx context.Context, e *models.JournalEntry) error {
	if e == nil {
		return nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	q := fmt.Sprintf("INSERT INTO %s (kind, at, ref_id, symbol, payload) VALUES (?, ?, ?, ?, ?)", journalTable)
	if _, err := j.db.ExecContext(ctx, q, string(e.Kind), e.At, journalRef(e), journalSymbol(e), string(payload)); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

func (j *CHJournal) AppendBatch(ctx context.Context, entries []*models.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]string, 0, len(entries))
	args := make([]interface{}, 0, len(entries)*5)
	for _, e := range entries {
		if e == nil {
			continue
		}
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal journal entry: %w", err)
		}
		values = append(values, "(?, ?, ?, ?, ?)")
		args = append(args, string(e.Kind), e.At, journalRef(e), journalSymbol(e), string(payload))
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (kind, at, ref_id, symbol, payload) VALUES %s", journalTable, strings.Join(values, ","))
	if _, err := j.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("append journal batch: %w", err)
	}
	return nil
}

func (j *CHJournal) Close() error {
	return nil // pool owned by pkg/clickhouse client
}

func journalSymbol(e *models.JournalEntry) string {
	switch {
	case e.Trade != nil:
		return e.Trade.Symbol
	case e.Position != nil:
		return e.Position.Symbol
	}
	return ""
}

func journalRef(e *models.JournalEntry) string {
	switch {
	case e.Trade != nil:
		return e.Trade.ID
	case e.Position != nil:
		return e.Position.ID
	}
	return ""
}

var (
	_ domrepo.Journal = (*KafkaJournal)(nil)
	_ domrepo.Journal = (*CHJournal)(nil)
)
