// Package persistence mirrors the user and idea collections to a key-value
// backend and rehydrates them on start.
package persistence

import (
	"context"
	"sync"
)

// Fixed keys of the persisted state.
const (
	UsersKey   = "ideon_users_storage"
	IdeasKey   = "ideon_ideas_storage"
	SessionKey = "loggedInUserId"
)

// KV is the key-value backend. Implementations live in the cache (Redis) and
// database (gorm) packages; MemoryKV keeps everything in process.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Name() string
}

// MemoryKV is a process-local KV.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Name() string { return "memory" }
