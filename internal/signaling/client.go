// Package signaling drives the two-party rendezvous through the room
// directory: the host publishes an offer and polls for the answer, the guest
// writes the answer exactly once and never polls.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p8labs/row3peer/internal/apperror"
	"github.com/p8labs/row3peer/internal/entity"
	"github.com/p8labs/row3peer/internal/peerlink"
	"github.com/p8labs/row3peer/internal/repository"
)

var ErrPollBudgetExhausted = errors.New("gave up waiting for an answer")

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollBudget   = 150
)

type Client struct {
	logger *slog.Logger
	rooms  repository.RoomRepository

	pollInterval time.Duration
	pollBudget   int
}

func New(logger *slog.Logger, rooms repository.RoomRepository, pollInterval time.Duration, pollBudget int) *Client {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	if pollBudget <= 0 {
		pollBudget = DefaultPollBudget
	}

	return &Client{
		logger:       logger.With("component", "signaling"),
		rooms:        rooms,
		pollInterval: pollInterval,
		pollBudget:   pollBudget,
	}
}

// HostSession generates the local offer and publishes it as a new room.
// The caller shares the returned join code and then calls AwaitAnswer.
func (that *Client) HostSession(ctx context.Context, link peerlink.Link, roomName, hostID string) (*entity.SignalingRoom, error) {
	offer, err := link.Offer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	room, err := that.rooms.Create(ctx, roomName, hostID, offer)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	that.logger.Info("room published", "code", room.Code)

	return room, nil
}

// AwaitAnswer polls the directory until the guest's answer shows up, then
// completes the handshake. The context is checked before every tick and
// again before a late response is acted on, so teardown mid-poll never
// touches the link afterwards.
func (that *Client) AwaitAnswer(ctx context.Context, link peerlink.Link, code string) error {
	log := that.logger.With("method", "AwaitAnswer", "code", code)

	ticker := time.NewTicker(that.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= that.pollBudget; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("polling canceled: %w", ctx.Err())
		case <-ticker.C:
		}

		room, err := that.rooms.FindByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to poll room: %w", err)
		}

		if err = ctx.Err(); err != nil {
			// the session was torn down while the read was in flight
			return fmt.Errorf("polling canceled: %w", err)
		}

		if room.Answer == nil {
			log.Debug("no answer yet", "attempt", attempt)
			continue
		}

		if err = link.Complete(ctx, *room.Answer); err != nil {
			return fmt.Errorf("failed to complete handshake: %w", err)
		}

		log.Info("answer received, handshake complete", "attempts", attempt)

		return nil
	}

	return fmt.Errorf("%w after %d attempts", ErrPollBudgetExhausted, that.pollBudget)
}

// JoinSession looks up the room, answers its offer and writes the answer
// back. No polling: the guest initiates locally, so the link's own connected
// event is the only thing left to wait for.
func (that *Client) JoinSession(ctx context.Context, link peerlink.Link, code string) (*entity.SignalingRoom, error) {
	room, err := that.rooms.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to find room: %w", err)
	}

	if room.Offer == nil {
		return nil, apperror.ErrRoomNotFound
	}

	answer, err := link.Answer(ctx, *room.Offer)
	if err != nil {
		return nil, fmt.Errorf("failed to answer offer: %w", err)
	}

	if err = that.rooms.UpdateAnswer(ctx, code, answer); err != nil {
		return nil, fmt.Errorf("failed to publish answer: %w", err)
	}

	that.logger.Info("answer published", "code", code)

	return room, nil
}

// Leave reclaims the room when the host walks away. Best effort: the TTL
// sweep picks up whatever this misses.
func (that *Client) Leave(ctx context.Context, role, code string) {
	if role != entity.RoleHost || code == "" {
		return
	}

	if err := that.rooms.Delete(ctx, code); err != nil {
		that.logger.Error("failed to delete room on leave", "code", code, "error", err)
	}
}
