package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/finsightlab/progression/internal/domain"
)

// MemoryStore implements Repository in process memory. It backs tests and
// the graceful-degradation path when the persistence medium is down.
// State is held serialized so callers never share mutable aggregates.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryRecord
}

type memoryRecord struct {
	encoded   []byte
	version   int64
	updatedAt time.Time
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryRecord)}
}

// LoadSession retrieves a session aggregate by id.
func (m *MemoryStore) LoadSession(_ context.Context, sessionID string) (*domain.SessionState, error) {
	m.mu.RLock()
	rec, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var state domain.SessionState
	if err := json.Unmarshal(rec.encoded, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	state.EnsureMaps()
	state.Version = rec.version
	return &state, nil
}

// SaveSession persists a session aggregate with an optimistic version check.
func (m *MemoryStore) SaveSession(_ context.Context, state *domain.SessionState, expectedVersion int64) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := int64(0)
	if rec, ok := m.sessions[state.SessionID]; ok {
		current = rec.version
	}
	if current != expectedVersion {
		return ErrVersionConflict
	}

	next := expectedVersion + 1
	m.sessions[state.SessionID] = memoryRecord{
		encoded:   encoded,
		version:   next,
		updatedAt: time.Now(),
	}
	state.Version = next
	return nil
}

// PruneIdleSessions removes sessions not saved within the idle horizon.
func (m *MemoryStore) PruneIdleSessions(_ context.Context, idle time.Duration) (int64, error) {
	threshold := time.Now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, rec := range m.sessions {
		if rec.updatedAt.Before(threshold) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close releases nothing for the in-memory store.
func (m *MemoryStore) Close() error { return nil }
