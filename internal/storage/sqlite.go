package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/IshaanNene/entitymap/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entity_counts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT    NOT NULL,
	link        TEXT    NOT NULL,
	entity      TEXT    NOT NULL,
	label       TEXT    NOT NULL,
	occurrences INTEGER NOT NULL,
	stored_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entity_counts_link ON entity_counts(link);
CREATE INDEX IF NOT EXISTS idx_entity_counts_run ON entity_counts(run_id);
`

// SQLiteStorage writes entity counts to a local SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	path   string
	runID  string
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewSQLiteStorage opens (or creates) the database at path.
func NewSQLiteStorage(ctx context.Context, path, runID string, logger *slog.Logger) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("open: %w", err)}
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("create schema: %w", err)}
	}

	return &SQLiteStorage{
		db:     db,
		path:   path,
		runID:  runID,
		logger: logger.With("component", "sqlite_storage"),
	}, nil
}

func (s *SQLiteStorage) Name() string { return "sqlite" }

func (s *SQLiteStorage) Store(ctx context.Context, rows []types.EntityCount) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entity_counts (run_id, link, entity, label, occurrences, stored_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, s.runID, r.Link, r.Entity, r.Label, r.Occurrences, now); err != nil {
			_ = tx.Rollback()
			return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("insert: %w", err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	s.count += len(rows)
	s.logger.Debug("rows stored in sqlite", "count", len(rows), "total", s.count)
	return nil
}

// Rows returns the stored rows of one page, ordered by entity and label.
func (s *SQLiteStorage) Rows(ctx context.Context, link string) ([]types.EntityCount, error) {
	rs, err := s.db.QueryContext(ctx,
		`SELECT link, entity, label, occurrences FROM entity_counts WHERE link = ? ORDER BY entity, label`, link)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []types.EntityCount
	for rs.Next() {
		var r types.EntityCount
		if err := rs.Scan(&r.Link, &r.Entity, &r.Label, &r.Occurrences); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

func (s *SQLiteStorage) Close() error {
	s.logger.Info("sqlite storage closing", "path", s.path, "total_rows", s.count)
	return s.db.Close()
}
