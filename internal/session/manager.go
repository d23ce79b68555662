// Package session owns the connecting/connected/disconnected lifecycle of a
// multiplayer session. One goroutine reacts to user commands, signaling
// outcomes and peer-link events, and is the only writer of session state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p8labs/row3peer/internal/apperror"
	"github.com/p8labs/row3peer/internal/entity"
	"github.com/p8labs/row3peer/internal/peerlink"
	"github.com/p8labs/row3peer/internal/protocol"
	"github.com/p8labs/row3peer/internal/repository"
	"github.com/p8labs/row3peer/internal/signaling"
)

// LinkFactory builds the peer link for a new session attempt. Production
// hands out pion links; tests hand out memory pair ends.
type LinkFactory func() (peerlink.Link, error)

type Manager struct {
	logger    *slog.Logger
	signal    *signaling.Client
	snapshots repository.SnapshotRepository
	newLink   LinkFactory
	playerID  string

	session *entity.Session
	game    *entity.Game
	link    peerlink.Link

	// cancels the host's in-flight answer poll
	cancelPoll context.CancelFunc

	events chan event
}

func NewManager(logger *slog.Logger, signal *signaling.Client, snapshots repository.SnapshotRepository, newLink LinkFactory, playerID string) *Manager {
	return &Manager{
		logger:    logger.With("component", "session"),
		signal:    signal,
		snapshots: snapshots,
		newLink:   newLink,
		playerID:  playerID,
		session:   entity.NewSession(),
		game:      entity.NewGame(),
		events:    make(chan event, 16),
	}
}

// Restore rehydrates the persisted slice of a previous session. The chat log
// and connection state are volatile and come back at their defaults.
func (that *Manager) Restore(snapshot *repository.Snapshot) {
	that.session.Mode = snapshot.Mode
	that.session.Role = snapshot.Role
	that.session.LocalMark = snapshot.LocalMark
	that.session.Status = snapshot.Status
	that.session.RoomCode = snapshot.RoomCode
	that.game.Board = snapshot.Board
	that.game.Turn = snapshot.Turn
	that.game.Winner = snapshot.Winner
	that.game.Status = entity.StatusPlaying
	if snapshot.Winner != "" {
		that.game.Status = entity.StatusFinished
	}

	// a persisted connecting state cannot be resumed; the handshake is gone
	if that.session.Status == entity.StatusConnecting {
		that.session.Status = entity.StatusWaiting
		that.session.Role = entity.RoleNone
		that.session.RoomCode = ""
	}
}

// Run consumes events until the context is canceled. All state mutation
// happens here; each event runs to completion before the next is taken.
func (that *Manager) Run(ctx context.Context) {
	for {
		// a session holds at most one link; nil channels park their
		// select cases while no link exists
		var states <-chan peerlink.ConnState
		var inbound <-chan protocol.Message
		if that.link != nil {
			states = that.link.States()
			inbound = that.link.Inbound()
		}

		select {
		case <-ctx.Done():
			that.teardown(context.Background())
			return
		case ev := <-that.events:
			that.handleEvent(ctx, ev)
		case state := <-states:
			that.handleLinkState(ctx, state)
		case msg := <-inbound:
			that.handleMessage(ctx, msg)
		}
	}
}

// --- public API; each call posts one event to the loop ---

func (that *Manager) SetMode(mode string) { that.events <- cmdSetMode{mode: mode} }
func (that *Manager) CreateRoom(name string) { that.events <- cmdCreateRoom{name: name} }
func (that *Manager) JoinRoom(code string) { that.events <- cmdJoinRoom{code: code} }
func (that *Manager) MakeMove(cell int) { that.events <- cmdMove{cell: cell} }
func (that *Manager) SendChat(text string) { that.events <- cmdChat{text: text} }
func (that *Manager) ResetGame() { that.events <- cmdReset{} }
func (that *Manager) LeaveRoom() { that.events <- cmdLeave{} }
func (that *Manager) Quit() { that.events <- cmdQuit{} }

// Snapshot returns copies of the session and game, serialized through the
// loop so readers never observe a half-applied event.
func (that *Manager) Snapshot() (entity.Session, entity.Game) {
	reply := make(chan snapshotReply, 1)
	that.events <- querySnapshot{reply: reply}
	r := <-reply
	return r.session, r.game
}

// --- event handling ---

func (that *Manager) handleEvent(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case cmdSetMode:
		that.handleSetMode(ctx, ev.mode)
	case cmdCreateRoom:
		that.handleCreateRoom(ctx, ev.name)
	case cmdJoinRoom:
		that.handleJoinRoom(ctx, ev.code)
	case cmdMove:
		that.handleMove(ctx, ev.cell)
	case cmdChat:
		that.handleChat(ev.text)
	case cmdReset:
		that.handleReset(ctx)
	case cmdLeave:
		that.handleLeave(ctx)
	case cmdQuit:
		that.handleQuit(ctx)
	case querySnapshot:
		ev.reply <- snapshotReply{session: *that.session, game: *that.game}
	case evAnswerResult:
		that.handleAnswerResult(ctx, ev)
	}
}

func (that *Manager) handleSetMode(ctx context.Context, mode string) {
	that.teardown(ctx)

	that.session = entity.NewSession()
	that.session.Mode = mode
	that.game = entity.NewGame()

	if mode == entity.ModeOffline {
		that.session.Status = entity.StatusPlaying
	}

	that.persist(ctx)
}

func (that *Manager) handleCreateRoom(ctx context.Context, name string) {
	if that.session.Status != entity.StatusWaiting {
		return
	}

	link, err := that.newLink()
	if err != nil {
		that.failHandshake(ctx, link, fmt.Errorf("failed to create peer link: %w", err), "Failed to create room.")
		return
	}

	that.session.Mode = entity.ModeMultiplayer
	that.session.Role = entity.RoleHost
	that.session.LocalMark = entity.PlayerX
	that.session.Status = entity.StatusConnecting
	that.session.ConnectionState = entity.ConnNegotiating
	that.link = link

	room, err := that.signal.HostSession(ctx, link, name, that.playerID)
	if err != nil {
		that.failHandshake(ctx, link, err, "Failed to create room.")
		return
	}

	that.session.RoomCode = room.Code
	that.session.AppendChat(entity.SenderSystem, "Room created. Share code "+room.Code+" with your opponent.")
	that.persist(ctx)

	pollCtx, cancel := context.WithCancel(ctx)
	that.cancelPoll = cancel

	go func() {
		err := that.signal.AwaitAnswer(pollCtx, link, room.Code)
		select {
		case that.events <- evAnswerResult{code: room.Code, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (that *Manager) handleJoinRoom(ctx context.Context, code string) {
	if that.session.Status != entity.StatusWaiting {
		return
	}

	link, err := that.newLink()
	if err != nil {
		that.failHandshake(ctx, link, fmt.Errorf("failed to create peer link: %w", err), "Failed to join room.")
		return
	}

	that.session.Mode = entity.ModeMultiplayer
	that.session.Role = entity.RoleGuest
	that.session.LocalMark = entity.PlayerO
	that.session.Status = entity.StatusConnecting
	that.session.ConnectionState = entity.ConnNegotiating
	that.link = link

	room, err := that.signal.JoinSession(ctx, link, code)
	if err != nil {
		reason := "Failed to join room."
		if errors.Is(err, apperror.ErrRoomNotFound) || errors.Is(err, apperror.ErrRoomExpired) {
			reason = "Room not found."
		}
		that.failHandshake(ctx, link, err, reason)
		return
	}

	that.session.RoomCode = room.Code
	that.session.AppendChat(entity.SenderSystem, "Joined room "+room.Code+". Connecting to host...")
	that.persist(ctx)
}

func (that *Manager) handleAnswerResult(ctx context.Context, ev evAnswerResult) {
	if ev.code != that.session.RoomCode {
		// a poll that outlived its session; ignore
		return
	}

	that.cancelPoll = nil

	if ev.err == nil {
		return
	}

	if errors.Is(ev.err, context.Canceled) {
		return
	}

	that.logger.Error("answer poll failed", "error", ev.err)
	that.failHandshake(ctx, that.link, ev.err, "No opponent joined. Room closed.")
}

func (that *Manager) handleMove(ctx context.Context, cell int) {
	if that.session.Status != entity.StatusPlaying {
		return
	}

	if that.session.Mode == entity.ModeOffline {
		if err := that.game.MakeTurn(that.game.Turn, cell); err != nil {
			that.logger.Debug("move rejected", "cell", cell, "error", err)
			return
		}

		that.finishMove(ctx)
		return
	}

	if that.link == nil {
		// a restored session has no live link; the move cannot reach the peer
		that.logger.Debug("move ignored without a peer link", "cell", cell)
		return
	}

	if err := that.game.LocalTurn(that.session.LocalMark, cell); err != nil {
		that.logger.Debug("local move rejected", "cell", cell, "error", err)
		return
	}

	if err := that.link.Send(protocol.NewMove(cell)); err != nil {
		that.logger.Error("failed to send move", "error", err)
	}

	that.finishMove(ctx)
}

func (that *Manager) handleChat(text string) {
	if text == "" {
		return
	}

	// appended optimistically; at-most-once, no acknowledgment
	that.session.AppendChat(entity.SenderYou, text)

	if that.link == nil {
		return
	}

	if err := that.link.Send(protocol.NewChat(text)); err != nil {
		that.logger.Error("failed to send chat", "error", err)
	}
}

func (that *Manager) handleReset(ctx context.Context) {
	if that.session.Status != entity.StatusPlaying && that.session.Status != entity.StatusFinished {
		return
	}

	that.game.Reset()
	that.session.Status = entity.StatusPlaying
	that.session.AppendChat(entity.SenderSystem, "Board reset.")

	if that.link != nil {
		if err := that.link.Send(protocol.NewReset()); err != nil {
			that.logger.Error("failed to send reset", "error", err)
		}
	}

	that.persist(ctx)
}

func (that *Manager) handleLeave(ctx context.Context) {
	that.teardown(ctx)

	mode := that.session.Mode
	that.session = entity.NewSession()
	that.session.Mode = mode
	that.game = entity.NewGame()
	that.session.AppendChat(entity.SenderSystem, "Left the room.")
	that.persist(ctx)
}

func (that *Manager) handleQuit(ctx context.Context) {
	that.teardown(ctx)

	that.session = entity.NewSession()
	that.game = entity.NewGame()

	if that.snapshots != nil {
		if err := that.snapshots.Clear(ctx, that.playerID); err != nil {
			that.logger.Error("failed to clear snapshot", "error", err)
		}
	}
}

// --- link events ---

func (that *Manager) handleLinkState(ctx context.Context, state peerlink.ConnState) {
	switch state {
	case peerlink.StateNegotiating:
		that.session.ConnectionState = entity.ConnNegotiating
	case peerlink.StateConnected:
		if that.session.ConnectionState == entity.ConnConnected {
			return
		}

		that.session.ConnectionState = entity.ConnConnected
		that.session.AppendChat(entity.SenderSystem, "Peer connected. Game on!")

		if that.session.Status != entity.StatusPlaying {
			that.game.Reset()
			that.session.Status = entity.StatusPlaying
		}

		that.persist(ctx)
	case peerlink.StateDisconnected, peerlink.StateFailed:
		if that.session.ConnectionState == entity.ConnDisconnected {
			return
		}

		// status is left alone: the UI distinguishes "game over" from
		// "connection lost mid-game" via connectionState
		that.session.ConnectionState = entity.ConnDisconnected
		that.session.AppendChat(entity.SenderSystem, "Connection to peer lost.")
	case peerlink.StateNew, peerlink.StateClosed:
	}
}

func (that *Manager) handleMessage(ctx context.Context, msg protocol.Message) {
	switch msg.Kind {
	case protocol.KindMove:
		if that.session.Status != entity.StatusPlaying {
			return
		}

		if err := that.game.RemoteTurn(that.session.LocalMark, msg.Move.Cell); err != nil {
			// fire-and-forget protocol: no error reply
			that.logger.Debug("remote move rejected", "cell", msg.Move.Cell, "error", err)
			return
		}

		that.finishMove(ctx)
	case protocol.KindReset:
		that.game.Reset()
		that.session.Status = entity.StatusPlaying
		that.session.AppendChat(entity.SenderSystem, "Peer reset the board.")
		that.persist(ctx)
	case protocol.KindChat:
		that.session.AppendChat(entity.SenderPeer, msg.Chat.Text)
	case protocol.KindDisconnect:
		// the board is kept so the final position can still be reviewed;
		// the goodbye and the link's own disconnected event narrate once
		if that.session.ConnectionState == entity.ConnDisconnected {
			return
		}

		that.session.ConnectionState = entity.ConnDisconnected
		that.session.AppendChat(entity.SenderSystem, "Peer left the game.")
	default:
		that.logger.Info("dropping message of unknown kind", "kind", msg.Kind)
	}
}

// --- helpers ---

func (that *Manager) finishMove(ctx context.Context) {
	if that.game.IsFinished() {
		that.session.Status = entity.StatusFinished

		switch that.game.Winner {
		case entity.PlayerTie:
			that.session.AppendChat(entity.SenderSystem, "It's a draw.")
		default:
			that.session.AppendChat(entity.SenderSystem, that.game.Winner+" wins!")
		}
	}

	that.persist(ctx)
}

// failHandshake is the shared recovery path for signaling and handshake
// failures: narrate, drop the link, revert to waiting. Never fatal.
func (that *Manager) failHandshake(ctx context.Context, link peerlink.Link, err error, narration string) {
	that.logger.Error("handshake failed", "error", err)

	if link != nil {
		if closeErr := link.Close(); closeErr != nil {
			that.logger.Error("failed to close link", "error", closeErr)
		}
	}

	that.link = nil
	that.session.Role = entity.RoleNone
	that.session.LocalMark = ""
	that.session.RoomCode = ""
	that.session.Status = entity.StatusWaiting
	that.session.ConnectionState = entity.ConnDisconnected
	that.session.AppendChat(entity.SenderSystem, narration)
	that.persist(ctx)
}

// teardown stops the poll, reclaims the room and closes the link. Safe to
// call from any state.
func (that *Manager) teardown(ctx context.Context) {
	if that.cancelPoll != nil {
		that.cancelPoll()
		that.cancelPoll = nil
	}

	that.signal.Leave(ctx, that.session.Role, that.session.RoomCode)

	if that.link != nil {
		if err := that.link.Close(); err != nil {
			that.logger.Error("failed to close link", "error", err)
		}
		that.link = nil
	}
}

func (that *Manager) persist(ctx context.Context) {
	if that.snapshots == nil {
		return
	}

	snapshot := repository.SnapshotFromSession(that.playerID, that.session, that.game)
	if err := that.snapshots.Save(ctx, snapshot); err != nil {
		that.logger.Error("failed to save snapshot", "error", err)
	}
}
