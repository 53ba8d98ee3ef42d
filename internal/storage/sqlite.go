package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // Registers the sqlite3 driver

	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

// Schema version tracking:
// 1 - leaderboard_records table and rank index
const sqliteSchemaVersion = 1

const sqliteSchemaV1 = `
CREATE TABLE IF NOT EXISTS leaderboard_records (
	name                 TEXT PRIMARY KEY,
	rank                 INTEGER NOT NULL,
	completed_paths      INTEGER NOT NULL,
	total_paths          INTEGER NOT NULL,
	arcade_games         TEXT NOT NULL,
	eligible_for_goodies INTEGER NOT NULL,
	locked               INTEGER NOT NULL,
	last_completed_at    TEXT,
	updated_at           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leaderboard_records_rank ON leaderboard_records(rank);
`

const sqliteUpsert = `
INSERT INTO leaderboard_records (
	name, rank, completed_paths, total_paths, arcade_games,
	eligible_for_goodies, locked, last_completed_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	rank = excluded.rank,
	completed_paths = excluded.completed_paths,
	total_paths = excluded.total_paths,
	arcade_games = excluded.arcade_games,
	eligible_for_goodies = excluded.eligible_for_goodies,
	locked = excluded.locked,
	last_completed_at = excluded.last_completed_at,
	updated_at = excluded.updated_at`

const sqliteSelectAll = `
SELECT name, rank, completed_paths, total_paths, arcade_games,
	eligible_for_goodies, locked, last_completed_at, updated_at
FROM leaderboard_records
ORDER BY rank, name`

// SQLiteStore persists records in a SQLite database.
// Uses WAL mode so the reader can query while a run writes.
type SQLiteStore struct {
	db *sql.DB
	*fileLeaser
}

var _ StoreLeaser = (*SQLiteStore)(nil)

// OpenSQLiteStore creates or opens the database at path and applies the schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applySQLitePragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := migrateSQLite(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, fileLeaser: newFileLeaser(path + ".lock")}, nil
}

func applySQLitePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// migrateSQLite applies incremental schema migrations based on user_version.
func migrateSQLite(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(sqliteSchemaV1); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// ListAll returns every record ordered by rank
func (s *SQLiteStore) ListAll(ctx context.Context) ([]leaderboard.PersistedRecord, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectAll)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []leaderboard.PersistedRecord
	for rows.Next() {
		var (
			rec             leaderboard.PersistedRecord
			arcade          string
			lastCompletedAt sql.NullString
			updatedAt       string
		)
		if err := rows.Scan(
			&rec.Name, &rec.Rank, &rec.CompletedPaths, &rec.TotalPaths, &arcade,
			&rec.EligibleForGoodies, &rec.Locked, &lastCompletedAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec.ArcadeGames = leaderboard.ParseArcadeStatus(arcade)
		if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("record %q has invalid updated_at: %w", rec.Name, err)
		}
		if lastCompletedAt.Valid {
			ts, err := time.Parse(time.RFC3339Nano, lastCompletedAt.String)
			if err != nil {
				return nil, fmt.Errorf("record %q has invalid last_completed_at: %w", rec.Name, err)
			}
			rec.LastCompletedAt = &ts
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// BatchWrite upserts all records in one transaction
func (s *SQLiteStore) BatchWrite(ctx context.Context, records []leaderboard.PersistedRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, rec := range records {
		var lastCompletedAt sql.NullString
		if rec.LastCompletedAt != nil {
			lastCompletedAt = sql.NullString{String: rec.LastCompletedAt.UTC().Format(time.RFC3339Nano), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			rec.Name, rec.Rank, rec.CompletedPaths, rec.TotalPaths, string(rec.ArcadeGames),
			rec.EligibleForGoodies, rec.Locked, lastCompletedAt, rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to upsert record %q: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
