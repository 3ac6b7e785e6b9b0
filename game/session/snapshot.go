package session

import (
	"context"
	"errors"
	"time"

	"github.com/kouya0205/math-mahjong/game/engine"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a room.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the durable read model written after each mutating command
// while a game is in progress. The in-memory engine stays the source of
// truth; snapshots are never loaded back into it.
type Snapshot struct {
	RoomID             string          `json:"room_id"`
	Status             engine.Status   `json:"status"`
	CurrentPlayerIndex int             `json:"current_player_index"`
	TargetNumber       int             `json:"target_number"`
	Players            []PlayerSummary `json:"players"`
	LastAction         *LastAction     `json:"last_action,omitempty"`
	Winner             *Winner         `json:"winner,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// PlayerSummary is the persisted per-player record: no hand contents, just
// the public counters.
type PlayerSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	HandCount int    `json:"hand_count"`
}

// LastAction is the persisted record of the winning play.
type LastAction struct {
	PlayerID   string    `json:"player_id"`
	Expression string    `json:"expression"`
	Value      int       `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

// Winner is the persisted winner record.
type Winner struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// TakeSnapshot captures a game's read model. Callers must hold the room
// lock.
func TakeSnapshot(g *engine.Game) *Snapshot {
	players := g.Players()
	snap := &Snapshot{
		RoomID:             g.RoomID(),
		Status:             g.Status(),
		CurrentPlayerIndex: g.CurrentPlayerIndex(),
		TargetNumber:       g.TargetNumber(),
		Players:            make([]PlayerSummary, 0, len(players)),
		UpdatedAt:          time.Now(),
	}
	for _, p := range players {
		snap.Players = append(snap.Players, PlayerSummary{
			ID:        p.ID,
			Name:      p.Name,
			Score:     p.Score,
			HandCount: len(p.Hand),
		})
	}
	if action := g.LastAction(); action != nil {
		snap.LastAction = &LastAction{
			PlayerID:   action.PlayerID,
			Expression: action.Expression,
			Value:      action.Value,
			Timestamp:  action.Timestamp,
		}
	}
	if winner := g.Winner(); winner != nil {
		snap.Winner = &Winner{PlayerID: winner.ID, Name: winner.Name, Score: winner.Score}
	}
	return snap
}

// Store persists snapshots. Implementations must be safe for concurrent
// use.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, roomID string) (*Snapshot, error)
	Delete(ctx context.Context, roomID string) error
	ListRoomIDs(ctx context.Context) ([]string, error)
	Close() error
}
