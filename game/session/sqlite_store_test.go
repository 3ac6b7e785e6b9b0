package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kouya0205/math-mahjong/game/engine"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSnapshot(roomID string) *Snapshot {
	return &Snapshot{
		RoomID:             roomID,
		Status:             engine.StatusPlaying,
		CurrentPlayerIndex: 1,
		TargetNumber:       321,
		Players: []PlayerSummary{
			{ID: "p1", Name: "alice", Score: 0, HandCount: 7},
			{ID: "p2", Name: "bob", Score: 35, HandCount: 4},
		},
		UpdatedAt: time.Now(),
	}
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	snap := sampleSnapshot("ROOM1")
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx, "ROOM1")
	require.NoError(t, err)
	assert.Equal(t, snap.RoomID, got.RoomID)
	assert.Equal(t, snap.Status, got.Status)
	assert.Equal(t, snap.CurrentPlayerIndex, got.CurrentPlayerIndex)
	assert.Equal(t, snap.TargetNumber, got.TargetNumber)
	assert.Equal(t, snap.Players, got.Players)
	assert.Nil(t, got.LastAction)
	assert.Nil(t, got.Winner)
	assert.WithinDuration(t, snap.UpdatedAt, got.UpdatedAt, time.Second)
}

func TestSQLiteStore_SaveAndLoadFinished(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	when := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	snap := sampleSnapshot("ROOM1")
	snap.Status = engine.StatusFinished
	snap.LastAction = &LastAction{
		PlayerID:   "p2",
		Expression: "3*107",
		Value:      321,
		Timestamp:  when,
	}
	snap.Winner = &Winner{PlayerID: "p2", Name: "bob", Score: 65}
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx, "ROOM1")
	require.NoError(t, err)
	require.NotNil(t, got.LastAction)
	assert.Equal(t, snap.LastAction, got.LastAction)
	require.NotNil(t, got.Winner)
	assert.Equal(t, snap.Winner, got.Winner)
}

func TestSQLiteStore_LoadMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSQLiteStore_Upsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	snap := sampleSnapshot("ROOM1")
	require.NoError(t, store.Save(ctx, snap))

	snap.TargetNumber = 999
	snap.Players[1].Score = 100
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx, "ROOM1")
	require.NoError(t, err)
	assert.Equal(t, 999, got.TargetNumber)
	assert.Equal(t, 100, got.Players[1].Score)

	ids, err := store.ListRoomIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ROOM1"}, ids)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot("ROOM1")))
	require.NoError(t, store.Delete(ctx, "ROOM1"))

	_, err := store.Load(ctx, "ROOM1")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	// Deleting a missing row is not an error.
	require.NoError(t, store.Delete(ctx, "ROOM1"))
}

func TestSQLiteStore_ListRoomIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot("B")))
	require.NoError(t, store.Save(ctx, sampleSnapshot("A")))
	require.NoError(t, store.Save(ctx, sampleSnapshot("C")))

	ids, err := store.ListRoomIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, ids)
}

func TestSQLiteStore_RejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLiteStore("  ")
	assert.Error(t, err)
}
