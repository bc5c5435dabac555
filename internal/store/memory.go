package store

import (
	"context"
	"go-batch-pipeline/internal/model"
	"sync"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	connected bool
	records   map[string]model.TransformedRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.TransformedRecord)}
}

func (m *MemoryStore) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Save(ctx context.Context, rec model.TransformedRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return "", ErrNotConnected
	}
	id := newID()
	m.records[id] = model.TransformedRecord(model.Record(rec).Clone())
	return id, nil
}

func (m *MemoryStore) Fetch(ctx context.Context, id string) (model.TransformedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return model.TransformedRecord(model.Record(rec).Clone()), nil
}

// Len reports how many records are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close disconnects the store. Saved records are kept.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}
