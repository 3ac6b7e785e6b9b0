package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kouya0205/math-mahjong/game/engine"
)

// SQLiteStore persists snapshots in a single SQLite table, one row per
// room, upserted on every write.
type SQLiteStore struct {
	db *sql.DB
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS game_snapshots (
	room_id              TEXT PRIMARY KEY,
	status               TEXT NOT NULL,
	current_player_index INTEGER NOT NULL,
	target_number        INTEGER NOT NULL,
	players              TEXT NOT NULL,
	last_action          TEXT,
	winner               TEXT,
	updated_at           INTEGER NOT NULL
);`

// OpenSQLiteStore opens (creating if needed) the snapshot database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot directory: %w", err)
		}
	}

	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save upserts a snapshot row.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil || snap.RoomID == "" {
		return fmt.Errorf("snapshot room id is required")
	}

	players, err := json.Marshal(snap.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	lastAction, err := marshalNullable(snap.LastAction)
	if err != nil {
		return fmt.Errorf("marshal last action: %w", err)
	}
	winner, err := marshalNullable(snap.Winner)
	if err != nil {
		return fmt.Errorf("marshal winner: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO game_snapshots
			(room_id, status, current_player_index, target_number, players, last_action, winner, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET
			status = excluded.status,
			current_player_index = excluded.current_player_index,
			target_number = excluded.target_number,
			players = excluded.players,
			last_action = excluded.last_action,
			winner = excluded.winner,
			updated_at = excluded.updated_at`,
		snap.RoomID, string(snap.Status), snap.CurrentPlayerIndex, snap.TargetNumber,
		string(players), lastAction, winner, snap.UpdatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load reads one room's snapshot.
func (s *SQLiteStore) Load(ctx context.Context, roomID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT status, current_player_index, target_number, players, last_action, winner, updated_at
		FROM game_snapshots WHERE room_id = ?`, roomID)

	var (
		status          string
		playersJSON     string
		lastActionJSON  sql.NullString
		winnerJSON      sql.NullString
		updatedAtMillis int64
	)
	snap := &Snapshot{RoomID: roomID}
	err := row.Scan(&status, &snap.CurrentPlayerIndex, &snap.TargetNumber,
		&playersJSON, &lastActionJSON, &winnerJSON, &updatedAtMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snap.Status = engine.Status(status)
	snap.UpdatedAt = fromMillis(updatedAtMillis)
	if err := json.Unmarshal([]byte(playersJSON), &snap.Players); err != nil {
		return nil, fmt.Errorf("unmarshal players: %w", err)
	}
	if lastActionJSON.Valid {
		if err := json.Unmarshal([]byte(lastActionJSON.String), &snap.LastAction); err != nil {
			return nil, fmt.Errorf("unmarshal last action: %w", err)
		}
	}
	if winnerJSON.Valid {
		if err := json.Unmarshal([]byte(winnerJSON.String), &snap.Winner); err != nil {
			return nil, fmt.Errorf("unmarshal winner: %w", err)
		}
	}
	return snap, nil
}

// Delete removes one room's snapshot.
func (s *SQLiteStore) Delete(ctx context.Context, roomID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM game_snapshots WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// ListRoomIDs returns every room id with a stored snapshot.
func (s *SQLiteStore) ListRoomIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT room_id FROM game_snapshots ORDER BY room_id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return ids, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func marshalNullable(v any) (sql.NullString, error) {
	switch value := v.(type) {
	case *LastAction:
		if value == nil {
			return sql.NullString{}, nil
		}
	case *Winner:
		if value == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
