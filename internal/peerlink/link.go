// Package peerlink manages one point-to-point peer connection and the single
// ordered, reliable data channel all gameplay traffic flows over once the
// offer/answer handshake completes.
package peerlink

import (
	"context"

	"github.com/p8labs/row3peer/internal/entity"
	"github.com/p8labs/row3peer/internal/protocol"
)

type ConnState string

const (
	StateNew          ConnState = "new"
	StateNegotiating  ConnState = "negotiating"
	StateConnected    ConnState = "connected"
	StateDisconnected ConnState = "disconnected"
	StateFailed       ConnState = "failed"
	StateClosed       ConnState = "closed"
)

// Link is one end of a peer connection. A link is used in exactly one of two
// ways: Offer then Complete (initiator), or Answer (responder, which needs no
// further handshake step). Handshake descriptions are opaque to callers; they
// are transported out-of-band through the signaling directory.
type Link interface {
	// Offer creates the connection and data channel and returns the local
	// offer. It suspends briefly so network-path candidates can gather
	// before the offer is considered final.
	Offer(ctx context.Context) (entity.Description, error)

	// Answer consumes a remote offer and returns the local answer.
	Answer(ctx context.Context, remote entity.Description) (entity.Description, error)

	// Complete finalizes the connection on the initiator side with the
	// remote answer. Calling it on a responder fails with ErrNotInitiator.
	Complete(ctx context.Context, remote entity.Description) error

	// Send serializes and writes one message to the channel. There is no
	// queuing or retry; when the channel is not open it fails with
	// ErrLinkClosed and the message is dropped.
	Send(msg protocol.Message) error

	// Inbound delivers decoded peer messages in arrival order. Malformed
	// payloads are logged and dropped before they reach this channel.
	Inbound() <-chan protocol.Message

	// States delivers coarse connection-state transitions.
	States() <-chan ConnState

	// Close notifies the peer with a best-effort disconnect message, then
	// tears down the channel and connection. Idempotent.
	Close() error
}
