package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go-batch-pipeline/internal/model"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS records (
	id UUID PRIMARY KEY,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps records as JSONB rows behind a pgx connection pool.
type PostgresStore struct {
	dsn    string
	logger *slog.Logger

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

func NewPostgresStore(dsn string, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{dsn: dsn, logger: logger}
}

// Connect creates the pool, pings it and ensures the records table exists.
func (s *PostgresStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		return nil
	}

	cfg, err := pgxpool.ParseConfig(s.dsn)
	if err != nil {
		return fmt.Errorf("store: parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("store: ping pool: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return fmt.Errorf("store: create postgres schema: %w", err)
	}

	s.pool = pool
	s.logger.Debug("postgres store connected", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return nil
}

func (s *PostgresStore) conn() (*pgxpool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return nil, ErrNotConnected
	}
	return s.pool, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec model.TransformedRecord) (string, error) {
	pool, err := s.conn()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("store: encode record: %w", err)
	}

	id := uuid.New()
	if _, err := pool.Exec(ctx, `INSERT INTO records (id, data) VALUES ($1, $2)`, id, string(data)); err != nil {
		return "", fmt.Errorf("store: insert record: %w", err)
	}
	return id.String(), nil
}

func (s *PostgresStore) Fetch(ctx context.Context, id string) (model.TransformedRecord, error) {
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var data string
	err = pool.QueryRow(ctx, `SELECT data::text FROM records WHERE id = $1`, uid).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}
