package peerlink

import (
	"context"
	"sync"

	"github.com/p8labs/row3peer/internal/apperror"
	"github.com/p8labs/row3peer/internal/entity"
	"github.com/p8labs/row3peer/internal/protocol"
)

// MemoryLink is an in-process Link for tests: two ends joined by channels,
// same handshake discipline and state signaling as the real thing. Messages
// still round-trip through the wire codec so tests exercise encoding.
type MemoryLink struct {
	mu        sync.Mutex
	peer      *MemoryLink
	initiator bool
	closed    bool

	inbound chan protocol.Message
	states  chan ConnState
}

// NewMemoryPair returns the two ends of a connected-in-waiting link pair.
// The first end is used as the initiator, the second as the responder.
func NewMemoryPair() (*MemoryLink, *MemoryLink) {
	a := &MemoryLink{
		inbound: make(chan protocol.Message, 32),
		states:  make(chan ConnState, 16),
	}
	b := &MemoryLink{
		inbound: make(chan protocol.Message, 32),
		states:  make(chan ConnState, 16),
	}

	a.peer = b
	b.peer = a

	return a, b
}

func (that *MemoryLink) Offer(_ context.Context) (entity.Description, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return entity.Description{}, apperror.ErrLinkClosed
	}

	that.initiator = true
	that.emit(StateNegotiating)

	return entity.Description{Type: "offer", SDP: "memory-offer"}, nil
}

func (that *MemoryLink) Answer(_ context.Context, remote entity.Description) (entity.Description, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return entity.Description{}, apperror.ErrLinkClosed
	}

	if remote.IsZero() || remote.Type != "offer" {
		return entity.Description{}, apperror.ErrRoomNotFound
	}

	that.emit(StateNegotiating)

	return entity.Description{Type: "answer", SDP: "memory-answer"}, nil
}

func (that *MemoryLink) Complete(_ context.Context, remote entity.Description) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.initiator {
		return apperror.ErrNotInitiator
	}

	if that.closed {
		return apperror.ErrLinkClosed
	}

	if remote.IsZero() || remote.Type != "answer" {
		return apperror.ErrLinkClosed
	}

	that.emit(StateConnected)
	that.peer.emitLocked(StateConnected)

	return nil
}

func (that *MemoryLink) Send(msg protocol.Message) error {
	that.mu.Lock()
	peer := that.peer
	closed := that.closed
	that.mu.Unlock()

	if closed {
		return apperror.ErrLinkClosed
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	decoded, err := protocol.Decode(data)
	if err != nil {
		return err
	}

	return peer.deliver(decoded)
}

func (that *MemoryLink) Inbound() <-chan protocol.Message {
	return that.inbound
}

func (that *MemoryLink) States() <-chan ConnState {
	return that.states
}

func (that *MemoryLink) Close() error {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return nil
	}
	peer := that.peer
	that.mu.Unlock()

	// best-effort, mirrors the real link's goodbye
	_ = that.Send(protocol.NewDisconnect("peer left"))

	that.mu.Lock()
	that.closed = true
	that.emit(StateClosed)
	that.mu.Unlock()

	peer.emitLocked(StateDisconnected)

	return nil
}

// Drop severs the pair without the goodbye message, simulating a mid-game
// link loss. Both ends observe disconnected and further sends fail.
func (that *MemoryLink) Drop() {
	that.mu.Lock()
	that.closed = true
	that.emit(StateDisconnected)
	peer := that.peer
	that.mu.Unlock()

	peer.mu.Lock()
	peer.closed = true
	peer.emit(StateDisconnected)
	peer.mu.Unlock()
}

func (that *MemoryLink) deliver(msg protocol.Message) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return apperror.ErrLinkClosed
	}

	select {
	case that.inbound <- msg:
		return nil
	default:
		return apperror.ErrLinkClosed
	}
}

// emit assumes that.mu is held.
func (that *MemoryLink) emit(state ConnState) {
	select {
	case that.states <- state:
	default:
	}
}

func (that *MemoryLink) emitLocked(state ConnState) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.emit(state)
}
