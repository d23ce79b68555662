package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/p8labs/row3peer/internal/apperror"
	"github.com/p8labs/row3peer/internal/entity"
)

// codePrefix plus four alphanumerics form the public join code, e.g. R3AB12.
const (
	codePrefix = "R3"
	codeLength = 4
	codeChars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	maxCodeAttempts = 32
)

var ErrCodeSpaceExhausted = errors.New("could not allocate an unused join code")

// RoomRepository is the signaling directory boundary: a key-value store of
// rendezvous rooms keyed by a short join code.
type RoomRepository interface {
	Create(ctx context.Context, name, hostID string, offer entity.Description) (*entity.SignalingRoom, error)
	FindByCode(ctx context.Context, code string) (*entity.SignalingRoom, error)
	UpdateAnswer(ctx context.Context, code string, answer entity.Description) error
	Delete(ctx context.Context, code string) error
	SweepExpired(ctx context.Context) (int, error)
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

// Create publishes a new room holding the host's offer and returns it with a
// freshly allocated join code. Rooms are stored under room:<id> with a
// roomcode:<code> index for lookup, and expire one hour after creation.
func (that *dbRoom) Create(ctx context.Context, name, hostID string, offer entity.Description) (*entity.SignalingRoom, error) {
	code, err := that.allocateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate join code: %w", err)
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

	if err = that.saveRoom(ctx, room); err != nil {
		return nil, err
	}

	err = that.client.Set(ctx, codeKey(code), room.ID, 0).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to set room code index: %w", err)
	}

	return room, nil
}

// FindByCode resolves a join code to its room. An expired room is reported
// as absent even if the record still exists, and is cleaned up on the spot.
func (that *dbRoom) FindByCode(ctx context.Context, code string) (*entity.SignalingRoom, error) {
	roomID, err := that.client.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resolve room code: %w", err)
	}

	room, err := that.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if room.IsExpired(time.Now().UTC()) {
		if delErr := that.Delete(ctx, code); delErr != nil {
			return nil, fmt.Errorf("failed to delete expired room: %w", delErr)
		}

		return nil, apperror.ErrRoomExpired
	}

	return room, nil
}

// UpdateAnswer writes the guest's answer into the room. A room accepts at
// most one answer; a second write fails with ErrAnswerAlreadySet.
func (that *dbRoom) UpdateAnswer(ctx context.Context, code string, answer entity.Description) error {
	room, err := that.FindByCode(ctx, code)
	if err != nil {
		return err
	}

	if room.Answer != nil {
		return apperror.ErrAnswerAlreadySet
	}

	room.Answer = &answer

	return that.saveRoom(ctx, room)
}

// Delete removes a room and its code index. Missing keys are not an error.
func (that *dbRoom) Delete(ctx context.Context, code string) error {
	roomID, err := that.client.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to resolve room code: %w", err)
	}

	if err = that.client.Del(ctx, roomKey(roomID), codeKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}

// SweepExpired scans all rooms and deletes the ones past their expiry. It is
// decoupled from any single client's lifecycle and safe to run concurrently.
func (that *dbRoom) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	deleted := 0

	iter := that.client.Scan(ctx, 0, roomKey("*"), 0).Iterator()
	for iter.Next(ctx) {
		response, err := that.client.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			return deleted, fmt.Errorf("failed to get room during sweep: %w", err)
		}

		var room entity.SignalingRoom
		if err = json.Unmarshal([]byte(response), &room); err != nil {
			return deleted, fmt.Errorf("failed to unmarshal room during sweep: %w", err)
		}

		if !room.IsExpired(now) {
			continue
		}

		if err = that.client.Del(ctx, roomKey(room.ID), codeKey(room.Code)).Err(); err != nil {
			return deleted, fmt.Errorf("failed to delete expired room: %w", err)
		}

		deleted++
	}

	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan rooms: %w", err)
	}

	return deleted, nil
}

func (that *dbRoom) allocateCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := generateJoinCode()

		taken, err := that.client.Exists(ctx, codeKey(code)).Result()
		if err != nil {
			return "", fmt.Errorf("failed to check join code: %w", err)
		}

		if taken == 0 {
			return code, nil
		}
	}

	return "", ErrCodeSpaceExhausted
}

func (that *dbRoom) saveRoom(ctx context.Context, room *entity.SignalingRoom) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	if err = that.client.Set(ctx, roomKey(room.ID), roomJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (that *dbRoom) getRoom(ctx context.Context, id string) (*entity.SignalingRoom, error) {
	response, err := that.client.Get(ctx, roomKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	var room entity.SignalingRoom
	if err = json.Unmarshal([]byte(response), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

func generateJoinCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeChars[rand.Intn(len(codeChars))] //nolint: gosec // join codes are not secrets
	}

	return codePrefix + string(code)
}

func roomKey(id string) string {
	return "room:" + id
}

func codeKey(code string) string {
	return "roomcode:" + code
}
