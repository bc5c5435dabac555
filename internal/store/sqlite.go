package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"go-batch-pipeline/internal/model"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

// SQLiteStore keeps records as JSON in a local SQLite file.
type SQLiteStore struct {
	path   string
	logger *slog.Logger

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string, logger *slog.Logger) *SQLiteStore {
	return &SQLiteStore{path: path, logger: logger}
}

// Connect opens the database file and creates the records table.
func (s *SQLiteStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("store: open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("store: ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("store: create sqlite schema: %w", err)
	}

	s.db = db
	s.logger.Debug("sqlite store connected", "path", s.path)
	return nil
}

func (s *SQLiteStore) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotConnected
	}
	return s.db, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec model.TransformedRecord) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("store: encode record: %w", err)
	}

	id := newID()
	_, err = db.ExecContext(ctx, `INSERT INTO records (id, data, created_at) VALUES (?, ?, ?)`,
		id, string(data), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("store: insert record: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Fetch(ctx context.Context, id string) (model.TransformedRecord, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, ErrNotFound
	}

	var data string
	err = db.QueryRowContext(ctx, `SELECT data FROM records WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: query record: %w", err)
	}

	var rec model.TransformedRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("store: decode record: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
