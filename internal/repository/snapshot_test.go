package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p8labs/row3peer/internal/entity"
	"github.com/p8labs/row3peer/internal/repository/storage"
)

func newTestStorage(t *testing.T) (context.Context, *storage.SQLiteStorage) {
	t.Helper()

	ctx := context.Background()

	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init(ctx))

	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	return ctx, st
}

func TestSnapshotRepository_SaveAndLoad(t *testing.T) {
	ctx, st := newTestStorage(t)

	repo := NewSnapshotRepository(st.Connection)

	// Given: a mid-game session snapshot
	snapshot := &Snapshot{
		PlayerID:  "player-1",
		Mode:      entity.ModeMultiplayer,
		Role:      entity.RoleHost,
		LocalMark: entity.PlayerX,
		Status:    entity.StatusPlaying,
		RoomCode:  "R3AB12",
		Board:     [9]string{entity.PlayerX, "", "", "", entity.PlayerO, "", "", "", ""},
		Turn:      entity.PlayerX,
	}

	// When: it is saved and loaded back
	require.NoError(t, repo.Save(ctx, snapshot))

	loaded, err := repo.Load(ctx, "player-1")
	require.NoError(t, err)

	// Then: the persisted slice survives intact
	require.Equal(t, snapshot, loaded)
}

func TestSnapshotRepository_SaveOverwrites(t *testing.T) {
	ctx, st := newTestStorage(t)

	repo := NewSnapshotRepository(st.Connection)

	// Given: an earlier snapshot for the same player
	first := &Snapshot{PlayerID: "player-1", Mode: entity.ModeOffline, Status: entity.StatusPlaying, Turn: entity.PlayerX}
	require.NoError(t, repo.Save(ctx, first))

	// When: a newer one is saved
	second := &Snapshot{PlayerID: "player-1", Mode: entity.ModeMultiplayer, Role: entity.RoleGuest, LocalMark: entity.PlayerO, Status: entity.StatusFinished, Winner: entity.PlayerO, Turn: entity.PlayerX}
	require.NoError(t, repo.Save(ctx, second))

	// Then: only the newer one remains
	loaded, err := repo.Load(ctx, "player-1")
	require.NoError(t, err)
	require.Equal(t, second, loaded)
}

func TestSnapshotRepository_LoadMissing(t *testing.T) {
	ctx, st := newTestStorage(t)

	repo := NewSnapshotRepository(st.Connection)

	_, err := repo.Load(ctx, "nobody")

	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSnapshotRepository_Clear(t *testing.T) {
	ctx, st := newTestStorage(t)

	repo := NewSnapshotRepository(st.Connection)

	// Given: a stored snapshot
	require.NoError(t, repo.Save(ctx, &Snapshot{PlayerID: "player-1", Status: entity.StatusPlaying, Turn: entity.PlayerX}))

	// When: the session is quit
	require.NoError(t, repo.Clear(ctx, "player-1"))

	// Then: nothing is left to restore
	_, err := repo.Load(ctx, "player-1")
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestIdentityRepository_GetOrCreate(t *testing.T) {
	ctx, st := newTestStorage(t)

	repo := NewIdentityRepository(st.Connection)

	// When: the identity is requested twice
	first, err := repo.GetOrCreate(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := repo.GetOrCreate(ctx)
	require.NoError(t, err)

	// Then: the token is stable across calls
	assert.Equal(t, first, second)
}
