package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p8labs/row3peer/internal/apperror"
	"github.com/p8labs/row3peer/internal/entity"
	"github.com/p8labs/row3peer/testing/suite"
)

var testOffer = entity.Description{Type: "offer", SDP: "v=0 test-offer"}

func TestRoomRepository_Create(t *testing.T) {
	ctx, st := suite.New(t)

	repo := NewRoomRepository(st.Storage)

	// When: a host publishes a room
	room, err := repo.Create(ctx, "Room 1", "host-1", testOffer)
	require.NoError(t, err)

	// Then: the join code has the public format
	require.Len(t, room.Code, 6)
	assert.Equal(t, "R3", room.Code[:2])

	// Then: the offer is stored and the room expires one hour after creation
	require.NotNil(t, room.Offer)
	assert.Equal(t, testOffer, *room.Offer)
	assert.Nil(t, room.Answer)
	assert.Equal(t, room.CreatedAt.Add(time.Hour), room.ExpiresAt)
}

func TestRoomRepository_FindByCode(t *testing.T) {
	ctx, st := suite.New(t)

	repo := NewRoomRepository(st.Storage)

	t.Run("Round trip", func(t *testing.T) {
		// Given: a published room
		created, err := repo.Create(ctx, "Room 1", "host-1", testOffer)
		require.NoError(t, err)

		// When: it is looked up by code
		found, err := repo.FindByCode(ctx, created.Code)
		require.NoError(t, err)

		// Then: the record matches what was published
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "host-1", found.HostID)
		require.NotNil(t, found.Offer)
		assert.Equal(t, testOffer, *found.Offer)
	})

	t.Run("Unknown code", func(t *testing.T) {
		_, err := repo.FindByCode(ctx, "R3XXXX")

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Expired room is absent and cleaned up", func(t *testing.T) {
		// Given: a room whose expiry has passed but whose record still exists
		created, err := repo.Create(ctx, "Stale", "host-1", testOffer)
		require.NoError(t, err)
		expireRoom(ctx, t, st.Storage, created)

		// When: it is looked up by code
		_, err = repo.FindByCode(ctx, created.Code)

		// Then: reported expired, and the lookup removed the record
		require.ErrorIs(t, err, apperror.ErrRoomExpired)

		exists, err := st.Storage.Exists(ctx, "room:"+created.ID, "roomcode:"+created.Code).Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})
}

func TestRoomRepository_UpdateAnswer(t *testing.T) {
	ctx, st := suite.New(t)

	repo := NewRoomRepository(st.Storage)
	answer := entity.Description{Type: "answer", SDP: "v=0 test-answer"}

	// Given: a published room
	created, err := repo.Create(ctx, "Room 1", "host-1", testOffer)
	require.NoError(t, err)

	// When: the guest writes its answer
	require.NoError(t, repo.UpdateAnswer(ctx, created.Code, answer))

	// Then: the host's next poll sees it
	found, err := repo.FindByCode(ctx, created.Code)
	require.NoError(t, err)
	require.NotNil(t, found.Answer)
	assert.Equal(t, answer, *found.Answer)

	// Then: a room accepts at most one answer
	err = repo.UpdateAnswer(ctx, created.Code, answer)
	require.ErrorIs(t, err, apperror.ErrAnswerAlreadySet)

	// Then: writing to a missing room fails cleanly
	err = repo.UpdateAnswer(ctx, "R3XXXX", answer)
	require.ErrorIs(t, err, apperror.ErrRoomNotFound)
}

func TestRoomRepository_Delete(t *testing.T) {
	ctx, st := suite.New(t)

	repo := NewRoomRepository(st.Storage)

	// Given: a published room
	created, err := repo.Create(ctx, "Room 1", "host-1", testOffer)
	require.NoError(t, err)

	// When: the host leaves and deletes it
	require.NoError(t, repo.Delete(ctx, created.Code))

	// Then: it is gone, and deleting again is not an error
	_, err = repo.FindByCode(ctx, created.Code)
	require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	require.NoError(t, repo.Delete(ctx, created.Code))
}

func TestRoomRepository_SweepExpired(t *testing.T) {
	ctx, st := suite.New(t)

	repo := NewRoomRepository(st.Storage)

	// Given: one stale room and one live room
	stale, err := repo.Create(ctx, "Stale", "host-1", testOffer)
	require.NoError(t, err)
	expireRoom(ctx, t, st.Storage, stale)

	live, err := repo.Create(ctx, "Live", "host-2", testOffer)
	require.NoError(t, err)

	// When: the sweep runs
	deleted, err := repo.SweepExpired(ctx)
	require.NoError(t, err)

	// Then: only the stale room is reclaimed
	assert.Equal(t, 1, deleted)

	_, err = repo.FindByCode(ctx, stale.Code)
	require.ErrorIs(t, err, apperror.ErrRoomNotFound)

	_, err = repo.FindByCode(ctx, live.Code)
	require.NoError(t, err)
}

// expireRoom backdates a stored room so expiry paths can be exercised.
func expireRoom(ctx context.Context, t *testing.T, client *redis.Client, room *entity.SignalingRoom) {
	t.Helper()

	stale := *room
	stale.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	staleJSON, err := json.Marshal(&stale)
	require.NoError(t, err)

	require.NoError(t, client.Set(ctx, "room:"+room.ID, staleJSON, 0).Err())
}
