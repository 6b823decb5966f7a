package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/repository"
	pkgch "CandleCast/pkg/clickhouse"
	"CandleCast/pkg/logger"
	"CandleCast/pkg/util"
)

// HistorySchema returns the DDL for the archive tables in database.
func HistorySchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.candles (
			symbol     LowCardinality(String),
			interval   LowCardinality(String),
			open_time  DateTime('UTC'),
			open       Decimal(38, 8),
			high       Decimal(38, 8),
			low        Decimal(38, 8),
			close      Decimal(38, 8),
			volume     Decimal(38, 8),
			fetched_at DateTime('UTC')
		) ENGINE = ReplacingMergeTree(fetched_at)
		ORDER BY (symbol, interval, open_time)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.summaries (
			run_id         String,
			latest_time    DateTime('UTC'),
			last_close     Float64,
			sma_14         Nullable(Float64),
			sma_20         Nullable(Float64),
			sma_50         Nullable(Float64),
			sma_100        Nullable(Float64),
			avg_volume_14d Float64,
			payload        String,
			created_at     DateTime('UTC')
		) ENGINE = MergeTree
		ORDER BY (latest_time, run_id)`, database),
	}
}

// CHHistory archives candles and summaries in ClickHouse.
type CHHistory struct {
	db       *sql.DB
	database string
	l        *logger.Logger
}

func NewCHHistory(ch *pkgch.Client, l *logger.Logger) repository.History {
	return &CHHistory{db: ch.DB(), database: ch.Database(), l: l}
}

// StoreCandles inserts the batch in one transaction. Re-fetched candles
// collapse onto the same key.
func (h *CHHistory) StoreCandles(ctx context.Context, q models.KlineQuery, seq models.CandleSequence) error {
	if len(seq) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin candles batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s.candles (symbol, interval, open_time, open, high, low, close, volume, fetched_at)", h.database))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare candles batch: %w", err)
	}
	defer stmt.Close()

	fetched := time.Now().UTC()
	for i, c := range seq {
		ts, err := c.OpenTime()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("candle %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, q.Symbol, q.Interval, ts, c.Open, c.High, c.Low, c.Close, c.Volume, fetched); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append candle %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit candles batch: %w", err)
	}

	h.l.Debug("clickhouse candles stored",
		logger.String("symbol", q.Symbol),
		logger.Int("rows", len(seq)),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (h *CHHistory) StoreSummary(ctx context.Context, runID string, s models.Summary) error {
	latest, ok := util.ParseTime(s.LatestTime)
	if !ok {
		return fmt.Errorf("summary latest_time %q is not a time", s.LatestTime)
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	q := fmt.Sprintf(`INSERT INTO %s.summaries
		(run_id, latest_time, last_close, sma_14, sma_20, sma_50, sma_100, avg_volume_14d, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, h.database)
	_, err = h.db.ExecContext(ctx, q,
		runID, latest, s.LastClose, s.SMA14, s.SMA20, s.SMA50, s.SMA100, s.AvgVolume, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the client.
func (h *CHHistory) Close() error { return nil }

// NoopHistory is used when no archive is configured.
type NoopHistory struct{}

func (NoopHistory) StoreCandles(context.Context, models.KlineQuery, models.CandleSequence) error {
	return nil
}

func (NoopHistory) StoreSummary(context.Context, string, models.Summary) error { return nil }

func (NoopHistory) Close() error { return nil }
