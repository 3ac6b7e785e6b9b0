package session

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process snapshot store, used in tests and when no
// snapshot database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]*Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]*Snapshot)}
}

// Save stores a copy of the snapshot.
func (m *MemoryStore) Save(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *snap
	m.snaps[snap.RoomID] = &copied
	return nil
}

// Load returns the stored snapshot for a room.
func (m *MemoryStore) Load(_ context.Context, roomID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, exists := m.snaps[roomID]
	if !exists {
		return nil, ErrSnapshotNotFound
	}
	copied := *snap
	return &copied, nil
}

// Delete removes a room's snapshot.
func (m *MemoryStore) Delete(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, roomID)
	return nil
}

// ListRoomIDs returns the stored room ids, sorted.
func (m *MemoryStore) ListRoomIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.snaps))
	for id := range m.snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
