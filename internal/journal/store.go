// Package journal persists terminal dispatch outcomes to SQLite for
// after-the-fact inspection. It is never consulted on the hot path.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded terminal outcome.
type Entry struct {
	ID        string
	Channel   string
	State     string
	Detail    string
	ElapsedMS int64
	CreatedAt time.Time
}

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS outcomes (
		id          TEXT PRIMARY KEY,
		channel     TEXT NOT NULL,
		state       TEXT NOT NULL,
		detail      TEXT,
		elapsed_ms  INTEGER NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_time ON outcomes(created_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_channel ON outcomes(channel, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO outcomes (id, channel, state, detail, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Channel, e.State, e.Detail, e.ElapsedMS, e.CreatedAt,
	)
	return err
}

func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel, state, detail, elapsed_ms, created_at
		 FROM outcomes ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Channel, &e.State, &e.Detail, &e.ElapsedMS, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than the retention period and returns how
// many rows were removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := s.db.ExecContext(ctx, `DELETE FROM outcomes WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneLoop prunes on the given interval until ctx is cancelled.
func (s *Store) PruneLoop(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Prune(ctx, retention)
			if err != nil {
				s.logger.Error("journal prune failed", "err", err)
			} else if n > 0 {
				s.logger.Info("journal pruned", "removed", n)
			}
		}
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}
