package storage

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
)

// MemoryStore keeps the encoded snapshot in memory, so callers never share maps with it.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

var _ Local = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return Snapshot{}, ErrNotFound
	}
	var snap Snapshot
	if err := json.Unmarshal(m.data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
