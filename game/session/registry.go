// Package session manages the concurrent room table and the best-effort
// snapshot persistence behind it.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/kouya0205/math-mahjong/game/engine"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
)

// Room codes skip look-alike characters so they survive being read aloud.
const (
	roomIDAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	roomIDLength   = 6
)

// Room pairs one game with the mutex that serializes every mutation and
// every view snapshot taken from it. One room is one shard: rooms never
// contend with each other.
type Room struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	game         *engine.Game
	lastAccessed time.Time
}

// Update runs fn while holding the room's exclusive lock. All engine
// mutations and all reads feeding broadcast go through here, so every
// observer sees a state consistent with the room's own write order.
func (r *Room) Update(fn func(g *engine.Game) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastAccessed = time.Now()
	return fn(r.game)
}

// LastAccessed returns the time of the most recent locked access.
func (r *Room) LastAccessed() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastAccessed
}

// Registry is the concurrent room table keyed by room id. Creation is an
// atomic test-and-insert, so concurrent create attempts for the same id
// never yield two engines.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rooms:  make(map[string]*Room),
		logger: logger,
	}
}

// Create inserts a new room. An empty id gets a generated room code. It
// fails with ErrRoomExists if the id is already taken.
func (reg *Registry) Create(id string, rules engine.Rules) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if id == "" {
		generated, err := reg.generateRoomID()
		if err != nil {
			return nil, err
		}
		id = generated
	} else if _, exists := reg.rooms[id]; exists {
		return nil, ErrRoomExists
	}

	now := time.Now()
	room := &Room{
		ID:           id,
		CreatedAt:    now,
		game:         engine.NewGame(id, rules),
		lastAccessed: now,
	}
	reg.rooms[id] = room

	reg.logger.Info("room created", zap.String("room_id", id))
	return room, nil
}

// Get returns the room for an id.
func (reg *Registry) Get(id string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, exists := reg.rooms[id]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Remove drops a room from the table.
func (reg *Registry) Remove(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.rooms[id]; exists {
		delete(reg.rooms, id)
		reg.logger.Info("room removed", zap.String("room_id", id))
	}
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// List returns all live rooms.
func (reg *Registry) List() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// CleanupIdle removes rooms not accessed within maxAge and returns the ids
// of the rooms it dropped, so the caller can purge their snapshots too.
func (reg *Registry) CleanupIdle(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	stale := make([]string, 0)
	for _, room := range reg.List() {
		if room.LastAccessed().Before(cutoff) {
			stale = append(stale, room.ID)
		}
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	removed := make([]string, 0, len(stale))
	for _, id := range stale {
		if _, exists := reg.rooms[id]; exists {
			delete(reg.rooms, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		reg.logger.Info("idle rooms removed", zap.Int("count", len(removed)))
	}
	return removed
}

// generateRoomID produces a room code not currently in use. Callers must
// hold the registry write lock.
func (reg *Registry) generateRoomID() (string, error) {
	for attempts := 0; attempts < 10; attempts++ {
		id, err := gonanoid.Generate(roomIDAlphabet, roomIDLength)
		if err != nil {
			return "", fmt.Errorf("generate room id: %w", err)
		}
		if _, exists := reg.rooms[id]; !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("room id space exhausted")
}
