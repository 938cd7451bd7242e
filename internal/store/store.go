// Package store keeps a PostgreSQL journal of transaction runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/playlist"
)

// DBPool abstracts pgxpool.Pool so the journal can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transaction_runs (
    id          UUID PRIMARY KEY,
    playlist    TEXT NOT NULL DEFAULT '',
    transaction TEXT NOT NULL,
    cycle       INTEGER NOT NULL DEFAULT 0,
    status      TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS transaction_steps (
    run_id     UUID NOT NULL REFERENCES transaction_runs(id) ON DELETE CASCADE,
    idx        INTEGER NOT NULL,
    screen     TEXT NOT NULL,
    action     TEXT NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    elapsed_ms BIGINT NOT NULL,
    error      TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, idx)
);
CREATE INDEX IF NOT EXISTS transaction_runs_playlist_idx ON transaction_runs (playlist, started_at DESC);
`

const insertRunSQL = `
INSERT INTO transaction_runs (id, playlist, transaction, cycle, status, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`

const recentRunsSQL = `
SELECT id::text, playlist, transaction, cycle, status, error, started_at, finished_at
FROM transaction_runs
WHERE ($1 = '' OR playlist = $1)
ORDER BY started_at DESC
LIMIT $2;
`

var stepColumns = []string{"run_id", "idx", "screen", "action", "started_at", "elapsed_ms", "error"}

// Journal records playlist.Run values. It implements playlist.Recorder.
type Journal struct {
	pool DBPool
	log  *zap.Logger
}

// Open connects a pgx pool to url.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return pool, nil
}

// New creates a journal and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Journal, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{pool: pool, log: logger.Named("store")}, nil
}

// EnsureSchema creates the journal tables when they are missing.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// RecordRun stores run and its steps in one database transaction.
func (j *Journal) RecordRun(ctx context.Context, run playlist.Run) error {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			j.log.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
	}()

	if _, err := tx.Exec(ctx, insertRunSQL,
		run.ID, run.Playlist, run.Transaction, run.Cycle, run.Status, run.Error,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(run.Steps) > 0 {
		rows := make([][]interface{}, len(run.Steps))
		for i, s := range run.Steps {
			rows[i] = []interface{}{run.ID, s.Index, s.Screen, s.Action, s.StartedAt.UTC(), s.Elapsed.Milliseconds(), s.Error}
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"transaction_steps"}, stepColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy steps: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("mismatch in copied steps count: expected %d, got %d", len(rows), n)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	j.log.Debug("Recorded run.", zap.String("run_id", run.ID.String()), zap.String("status", run.Status))
	return nil
}

// RecentRuns returns up to limit runs, newest first. An empty playlist
// matches every run. Steps are not loaded.
func (j *Journal) RecentRuns(ctx context.Context, playlistName string, limit int) ([]playlist.Run, error) {
	rows, err := j.pool.Query(ctx, recentRunsSQL, playlistName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []playlist.Run
	for rows.Next() {
		var r playlist.Run
		var id string
		var started, finished time.Time
		if err := rows.Scan(&id, &r.Playlist, &r.Transaction, &r.Cycle, &r.Status, &r.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		r.StartedAt, r.FinishedAt = started, finished
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}
