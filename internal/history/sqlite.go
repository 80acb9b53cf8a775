// Package history persists finished interview calls in a local SQLite file
// so the terminal practice flow keeps its history between runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/campusconnect/campus/internal/interview"
)

// DefaultPath is used when no path is configured.
var DefaultPath = filepath.Join("data", "campus-history.db")

// SQLiteStore is a call.HistoryBackend on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens or creates the store at path.
func Open(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("history: apply pragma %q: %w", p, err)
		}
	}
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS interview_history (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			status TEXT NOT NULL,
			record TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("history: create table: %w", err)
	}
	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_history_user ON interview_history(user_id, timestamp)"); err != nil {
		return fmt.Errorf("history: create index: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts or replaces rec.
func (s *SQLiteStore) Save(ctx context.Context, rec interview.HistoryRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("history: record id is required")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: encode %s: %w", rec.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interview_history (id, user_id, timestamp, status, record)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			timestamp = excluded.timestamp,
			status = excluded.status,
			record = excluded.record
	`, rec.ID, rec.UserID, rec.Timestamp.UTC().Format(time.RFC3339Nano), string(rec.Status), string(payload))
	if err != nil {
		return fmt.Errorf("history: save %s: %w", rec.ID, err)
	}
	return nil
}

// List returns the user's records, newest first.
func (s *SQLiteStore) List(ctx context.Context, userID string) ([]interview.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT record FROM interview_history WHERE user_id = ? ORDER BY timestamp DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []interview.HistoryRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		var rec interview.HistoryRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("history: decode: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return out, nil
}

// Delete removes one record.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM interview_history WHERE id = ?", id); err != nil {
		return fmt.Errorf("history: delete %s: %w", id, err)
	}
	return nil
}
