package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
	pkgch "CoinSim/pkg/clickhouse"
	applogger "CoinSim/pkg/logger"
)

const candlesTable = "coinsim.candles"

var candleSchema = []string{
	`CREATE DATABASE IF NOT EXISTS coinsim`,
	`CREATE TABLE IF NOT EXISTS coinsim.candles (
        symbol    LowCardinality(String),
        timeframe LowCardinality(String),
        bucket    DateTime,
        open      Float64,
        high      Float64,
        low       Float64,
        close     Float64,
        volume    Float64
    ) ENGINE = ReplacingMergeTree
    ORDER BY (symbol, timeframe, bucket)`,
}

// CHCandleStore implements CandleStore backed by ClickHouse. Re-inserted
// buckets collapse on merge, so feed warm-backs and stream folds can both
// write the same candle safely.
type CHCandleStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client) *CHCandleStore {
	return &CHCandleStore{client: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHCandleStore) Init(ctx context.Context) error {
	if err := s.client.InitSchema(ctx, candleSchema); err != nil {
		return fmt.Errorf("candle schema: %w", err)
	}
	return nil
}

func (s *CHCandleStore) Store(ctx context.Context, c *models.Candle) error {
	if c == nil || c.Symbol == "" {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, timeframe, bucket, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", candlesTable)
	_, err := s.db.ExecContext(ctx, q,
		c.Symbol,
		c.Timeframe,
		c.Bucket,
		c.Open,
		c.High,
		c.Low,
		c.Close,
		c.Volume,
	)
	if err != nil {
		return fmt.Errorf("store candle: %w", err)
	}
	return nil
}

func (s *CHCandleStore) StoreBatch(ctx context.Context, candles []*models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	// Multi-row VALUES to reduce round-trips, chunked at 2000 rows.
	const chunkSize = 2000
	for start := 0; start < len(candles); start += chunkSize {
		end := start + chunkSize
		if end > len(candles) {
			end = len(candles)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, c := range candles[start:end] {
			if c == nil || c.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				c.Symbol,
				c.Timeframe,
				c.Bucket,
				c.Open,
				c.High,
				c.Low,
				c.Close,
				c.Volume,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, timeframe, bucket, open, high, low, close, volume) VALUES %s", candlesTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store candle batch: %w", err)
		}
	}
	return nil
}

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	q := fmt.Sprintf(
		"SELECT symbol, timeframe, bucket, open, high, low, close, volume FROM %s FINAL WHERE symbol = ? AND timeframe = ? AND bucket >= ? AND bucket <= ? ORDER BY bucket ASC",
		candlesTable,
	)
	return s.queryCandles(ctx, "range", 1024, q, symbol, string(tf), from, to)
}

func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	q := fmt.Sprintf(
		"SELECT symbol, timeframe, bucket, open, high, low, close, volume FROM %s FINAL WHERE symbol = ? AND timeframe = ? ORDER BY bucket DESC LIMIT ?",
		candlesTable,
	)
	out, err := s.queryCandles(ctx, "latest", n, q, symbol, string(tf), n)
	if err != nil {
		return nil, err
	}
	// The DESC page is flipped so callers always see ascending buckets.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// queryCandles runs one candle SELECT and scans the result. op names the
// query in errors and logs.
func (s *CHCandleStore) queryCandles(ctx context.Context, op string, capHint int, q string, args ...interface{}) ([]models.Candle, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logQueryErr(op, err)
		return nil, fmt.Errorf("%s candles: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, capHint)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.Bucket, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logQueryErr(op, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.logQueryErr(op, err)
		return nil, fmt.Errorf("%s candles: %w", op, err)
	}

	if s.l != nil {
		s.l.Debug("candle query done",
			applogger.String("op", op),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHCandleStore) logQueryErr(op string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error("candle query failed", applogger.String("op", op), applogger.Error(err))
}

func (s *CHCandleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHCandleStore) Close() error {
	return nil // pool owned by pkg/clickhouse client
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)
