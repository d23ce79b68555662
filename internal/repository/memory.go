package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p8labs/row3peer/internal/apperror"
	"github.com/p8labs/row3peer/internal/entity"
)

// MemoryRoomRepository is an in-process signaling directory with the same
// contract as the Redis one. Tests use it to run both ends of a rendezvous
// in a single process.
type MemoryRoomRepository struct {
	mu    sync.Mutex
	rooms map[string]*entity.SignalingRoom
}

func NewMemoryRoomRepository() *MemoryRoomRepository {
	return &MemoryRoomRepository{
		rooms: make(map[string]*entity.SignalingRoom),
	}
}

func (that *MemoryRoomRepository) Create(_ context.Context, name, hostID string, offer entity.Description) (*entity.SignalingRoom, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	code := generateJoinCode()
	for that.rooms[code] != nil {
		code = generateJoinCode()
	}

	now := time.Now().UTC()
	room := &entity.SignalingRoom{
		ID:        uuid.NewString(),
		Name:      name,
		Code:      code,
		HostID:    hostID,
		Offer:     &offer,
		CreatedAt: now,
		ExpiresAt: now.Add(entity.RoomTTL),
	}

	that.rooms[code] = room

	return cloneRoom(room), nil
}

func (that *MemoryRoomRepository) FindByCode(_ context.Context, code string) (*entity.SignalingRoom, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[code]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	if room.IsExpired(time.Now().UTC()) {
		delete(that.rooms, code)
		return nil, apperror.ErrRoomExpired
	}

	return cloneRoom(room), nil
}

func (that *MemoryRoomRepository) UpdateAnswer(_ context.Context, code string, answer entity.Description) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[code]
	if !ok {
		return apperror.ErrRoomNotFound
	}

	if room.Answer != nil {
		return apperror.ErrAnswerAlreadySet
	}

	room.Answer = &answer

	return nil
}

func (that *MemoryRoomRepository) Delete(_ context.Context, code string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, code)

	return nil
}

func (that *MemoryRoomRepository) SweepExpired(_ context.Context) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	now := time.Now().UTC()
	deleted := 0

	for code, room := range that.rooms {
		if room.IsExpired(now) {
			delete(that.rooms, code)
			deleted++
		}
	}

	return deleted, nil
}

// Expire backdates a room so expiry paths can be exercised without waiting.
func (that *MemoryRoomRepository) Expire(code string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if room, ok := that.rooms[code]; ok {
		room.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	}
}

func cloneRoom(room *entity.SignalingRoom) *entity.SignalingRoom {
	clone := *room

	if room.Offer != nil {
		offer := *room.Offer
		clone.Offer = &offer
	}

	if room.Answer != nil {
		answer := *room.Answer
		clone.Answer = &answer
	}

	return &clone
}
