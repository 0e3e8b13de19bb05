package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/maltedev/sku-price-scraper/internal/models"
)

const snapshotsSchema = `
CREATE TABLE IF NOT EXISTS price_snapshots (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	sku TEXT NOT NULL,
	price TEXT NOT NULL,
	status TEXT NOT NULL,
	last_updated TIMESTAMP NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_price_snapshots_sku ON price_snapshots (sku, last_updated DESC);
CREATE INDEX IF NOT EXISTS idx_price_snapshots_run ON price_snapshots (run_id);
`

var snapshotColumns = []string{"run_id", "sku", "price", "status", "last_updated"}

// Copier is satisfied by pgx.Tx, *pgx.Conn and *pgxpool.Pool.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// EnsureSchema creates the snapshot table when it does not exist yet.
func EnsureSchema(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, snapshotsSchema); err != nil {
		return fmt.Errorf("failed to create price_snapshots: %w", err)
	}
	return nil
}

// SnapshotSink appends every outcome of a run to price_snapshots.
type SnapshotSink struct {
	withTx func(ctx context.Context, fn func(pgx.Tx) error) error
	runID  string
	logger *slog.Logger
}

func NewSnapshotSink(db *DB, runID string, logger *slog.Logger) *SnapshotSink {
	return newSnapshotSink(db.WithTx, runID, logger)
}

func newSnapshotSink(withTx func(ctx context.Context, fn func(pgx.Tx) error) error, runID string, logger *slog.Logger) *SnapshotSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotSink{
		withTx: withTx,
		runID:  runID,
		logger: logger.With("component", "snapshot-sink"),
	}
}

func (s *SnapshotSink) Write(ctx context.Context, outcomes []models.Outcome) error {
	rows, err := snapshotRows(s.runID, outcomes)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		n, err := CopySnapshots(ctx, tx, rows)
		if err != nil {
			return err
		}
		s.logger.Info("stored price snapshots", "run_id", s.runID, "rows", n)
		return nil
	})
}

// CopySnapshots bulk-loads prepared rows.
func CopySnapshots(ctx context.Context, c Copier, rows [][]interface{}) (int64, error) {
	n, err := c.CopyFrom(ctx, pgx.Identifier{"price_snapshots"}, snapshotColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("failed to copy price snapshots: %w", err)
	}
	return n, nil
}

func snapshotRows(runID string, outcomes []models.Outcome) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, len(outcomes))
	for _, o := range outcomes {
		ts, err := time.ParseInLocation(models.TimestampLayout, o.Timestamp, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp for %s: %w", o.SKU, err)
		}
		rows = append(rows, []interface{}{runID, o.SKU, o.Price, string(o.Status()), ts})
	}
	return rows, nil
}
