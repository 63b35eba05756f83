package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"readyscriptpro/internal/domain"
)

// SQLiteStore implements domain.QuotaStore using SQLite, so daily usage
// survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs
// the schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open quota db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate quota db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS usage (
			user_id    TEXT PRIMARY KEY,
			day        TEXT NOT NULL,
			count      INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the usage record for a user or domain.ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*domain.UsageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT user_id, day, count FROM usage WHERE user_id = ?", userID,
	)
	var rec domain.UsageRecord
	if err := row.Scan(&rec.UserID, &rec.Day, &rec.Count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewDomainError("SQLiteStore.Get", domain.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("scan usage record: %w", err)
	}
	return &rec, nil
}

// Set stores or replaces a user's usage record.
func (s *SQLiteStore) Set(ctx context.Context, rec *domain.UsageRecord) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage (user_id, day, count, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET day = excluded.day, count = excluded.count, updated_at = excluded.updated_at`,
		rec.UserID, rec.Day, rec.Count, now,
	)
	if err != nil {
		return fmt.Errorf("upsert usage record: %w", err)
	}
	return nil
}

// Clear removes a user's usage record. Clearing an absent record is not
// an error.
func (s *SQLiteStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM usage WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete usage record: %w", err)
	}
	return nil
}

var _ domain.QuotaStore = (*SQLiteStore)(nil)
