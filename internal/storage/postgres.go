package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

// advisoryLockKey identifies the reconciliation lease among session advisory locks
const advisoryLockKey int64 = 0x6c62_7379_6e63 // "lbsync"

const pgSelectAll = `
SELECT name, rank, completed_paths, total_paths, arcade_games,
	eligible_for_goodies, locked, last_completed_at, updated_at
FROM leaderboard_records
ORDER BY rank, name`

const pgUpsert = `
INSERT INTO leaderboard_records (
	name, rank, completed_paths, total_paths, arcade_games,
	eligible_for_goodies, locked, last_completed_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (name) DO UPDATE SET
	rank = EXCLUDED.rank,
	completed_paths = EXCLUDED.completed_paths,
	total_paths = EXCLUDED.total_paths,
	arcade_games = EXCLUDED.arcade_games,
	eligible_for_goodies = EXCLUDED.eligible_for_goodies,
	locked = EXCLUDED.locked,
	last_completed_at = EXCLUDED.last_completed_at,
	updated_at = EXCLUDED.updated_at`

// PostgresStore persists records in PostgreSQL. The schema is managed by the
// migrations in the database package.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ StoreLeaser = (*PostgresStore)(nil)

// NewPostgresStore creates a store on the given pool.
// The caller is responsible for closing the pool when done.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

// ListAll returns every record ordered by rank
func (s *PostgresStore) ListAll(ctx context.Context) ([]leaderboard.PersistedRecord, error) {
	rows, err := s.pool.Query(ctx, pgSelectAll)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.CollectableRow) (leaderboard.PersistedRecord, error) {
	var (
		rec             leaderboard.PersistedRecord
		rank            int32
		completed       int32
		total           int32
		arcade          string
		lastCompletedAt *time.Time
	)
	if err := row.Scan(
		&rec.Name, &rank, &completed, &total, &arcade,
		&rec.EligibleForGoodies, &rec.Locked, &lastCompletedAt, &rec.UpdatedAt,
	); err != nil {
		return rec, err
	}

	rec.Rank = int(rank)
	rec.CompletedPaths = int(completed)
	rec.TotalPaths = int(total)
	rec.ArcadeGames = leaderboard.ParseArcadeStatus(arcade)
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if lastCompletedAt != nil {
		ts := lastCompletedAt.UTC()
		rec.LastCompletedAt = &ts
	}
	return rec, nil
}

// BatchWrite upserts all records in one transaction
func (s *PostgresStore) BatchWrite(ctx context.Context, records []leaderboard.PersistedRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadWrite})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Debug("Rollback after failed batch write", "error", rbErr)
		}
	}()

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(pgUpsert,
			rec.Name, int32(rec.Rank), int32(rec.CompletedPaths), int32(rec.TotalPaths),
			string(rec.ArcadeGames), rec.EligibleForGoodies, rec.Locked,
			rec.LastCompletedAt, rec.UpdatedAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for _, rec := range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to upsert record %q: %w", rec.Name, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Acquire takes a session advisory lock on a dedicated pooled connection.
// The connection stays checked out until release.
func (s *PostgresStore) Acquire(ctx context.Context) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for lease: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to take advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, ErrLeaseHeld
	}

	return func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", advisoryLockKey); err != nil {
			slog.Warn("Failed to release advisory lock, dropping connection", "error", err)
			// closing the session frees its advisory locks
			_ = conn.Conn().Close(unlockCtx)
		}
		conn.Release()
	}, nil
}

// Close is a no-op; the pool is owned by the caller
func (*PostgresStore) Close() error {
	return nil
}
