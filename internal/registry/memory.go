package registry

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by SetBanned for unknown installations.
var ErrNotFound = errors.New("installation not found")

// MemoryStore is a thread-safe in-memory Store. Records are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Installation
	byHash map[string]string // token hash -> install id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Installation),
		byHash: make(map[string]string),
	}
}

func (m *MemoryStore) Upsert(_ context.Context, installID, tokenHash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.byID[installID]
	if !ok {
		inst = &Installation{
			InstallID: installID,
			Plan:      DefaultPlan,
			CreatedAt: now,
		}
		m.byID[installID] = inst
	} else {
		delete(m.byHash, inst.TokenHash)
	}

	inst.TokenHash = tokenHash
	inst.LastSeenAt = now
	m.byHash[tokenHash] = installID
	return nil
}

func (m *MemoryStore) FindByTokenHash(_ context.Context, tokenHash string) (*Installation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *MemoryStore) Touch(_ context.Context, installID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inst, ok := m.byID[installID]; ok {
		inst.LastSeenAt = now
	}
	return nil
}

func (m *MemoryStore) SetBanned(_ context.Context, installID string, banned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.byID[installID]
	if !ok {
		return ErrNotFound
	}
	inst.Banned = banned
	return nil
}

func (m *MemoryStore) Close() error { return nil }
