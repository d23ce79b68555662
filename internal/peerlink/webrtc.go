package peerlink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/p8labs/row3peer/internal/apperror"
	"github.com/p8labs/row3peer/internal/entity"
	"github.com/p8labs/row3peer/internal/protocol"
)

const dataChannelLabel = "gameData"

// gatherGrace caps how long an offer or answer waits for candidate
// gathering. Vanilla ICE, no trickle: the description published to the
// directory is final.
const gatherGrace = time.Second

var rtcConfig = webrtc.Configuration{
	ICEServers: []webrtc.ICEServer{
		{URLs: []string{"stun:stun1.l.google.com:19302", "stun:stun2.l.google.com:19302"}},
	},
}

// WebRTCLink is the production Link over a pion peer connection.
type WebRTCLink struct {
	logger *slog.Logger

	conn      *webrtc.PeerConnection
	initiator bool

	mu      sync.Mutex
	channel *webrtc.DataChannel

	inbound chan protocol.Message
	states  chan ConnState

	closeOnce sync.Once
}

func NewWebRTCLink(logger *slog.Logger) (*WebRTCLink, error) {
	conn, err := webrtc.NewPeerConnection(rtcConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	link := &WebRTCLink{
		logger:  logger.With("component", "peerlink"),
		conn:    conn,
		inbound: make(chan protocol.Message, 32),
		states:  make(chan ConnState, 16),
	}

	conn.OnConnectionStateChange(link.onConnectionStateChange)

	return link, nil
}

func (that *WebRTCLink) Offer(ctx context.Context) (entity.Description, error) {
	that.initiator = true

	channel, err := that.conn.CreateDataChannel(dataChannelLabel, nil)
	if err != nil {
		return entity.Description{}, fmt.Errorf("failed to create data channel: %w", err)
	}

	that.setupChannel(channel)

	offer, err := that.conn.CreateOffer(nil)
	if err != nil {
		return entity.Description{}, fmt.Errorf("failed to create offer: %w", err)
	}

	return that.finishLocalDescription(ctx, offer)
}

func (that *WebRTCLink) Answer(ctx context.Context, remote entity.Description) (entity.Description, error) {
	that.conn.OnDataChannel(func(channel *webrtc.DataChannel) {
		that.setupChannel(channel)
	})

	err := that.conn.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(remote.Type),
		SDP:  remote.SDP,
	})
	if err != nil {
		return entity.Description{}, fmt.Errorf("failed to set remote offer: %w", err)
	}

	answer, err := that.conn.CreateAnswer(nil)
	if err != nil {
		return entity.Description{}, fmt.Errorf("failed to create answer: %w", err)
	}

	return that.finishLocalDescription(ctx, answer)
}

func (that *WebRTCLink) Complete(ctx context.Context, remote entity.Description) error {
	if !that.initiator {
		return apperror.ErrNotInitiator
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("handshake canceled: %w", err)
	}

	err := that.conn.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(remote.Type),
		SDP:  remote.SDP,
	})
	if err != nil {
		return fmt.Errorf("failed to set remote answer: %w", err)
	}

	return nil
}

func (that *WebRTCLink) Send(msg protocol.Message) error {
	that.mu.Lock()
	channel := that.channel
	that.mu.Unlock()

	if channel == nil || channel.ReadyState() != webrtc.DataChannelStateOpen {
		return apperror.ErrLinkClosed
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err = channel.Send(data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (that *WebRTCLink) Inbound() <-chan protocol.Message {
	return that.inbound
}

func (that *WebRTCLink) States() <-chan ConnState {
	return that.states
}

func (that *WebRTCLink) Close() error {
	var err error

	that.closeOnce.Do(func() {
		if sendErr := that.Send(protocol.NewDisconnect("peer left")); sendErr != nil {
			that.logger.Debug("could not notify peer on close", "error", sendErr)
		}

		that.mu.Lock()
		channel := that.channel
		that.mu.Unlock()

		if channel != nil {
			if closeErr := channel.Close(); closeErr != nil {
				that.logger.Debug("could not close data channel", "error", closeErr)
			}
		}

		if closeErr := that.conn.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close peer connection: %w", closeErr)
		}

		that.emit(StateClosed)
	})

	return err
}

// finishLocalDescription applies the pending description and waits out the
// candidate-gathering grace period so the returned description is complete.
func (that *WebRTCLink) finishLocalDescription(ctx context.Context, pending webrtc.SessionDescription) (entity.Description, error) {
	gatherComplete := webrtc.GatheringCompletePromise(that.conn)

	if err := that.conn.SetLocalDescription(pending); err != nil {
		return entity.Description{}, fmt.Errorf("failed to set local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-time.After(gatherGrace):
	case <-ctx.Done():
		return entity.Description{}, fmt.Errorf("handshake canceled: %w", ctx.Err())
	}

	local := that.conn.LocalDescription()
	if local == nil {
		return entity.Description{}, apperror.ErrLinkClosed
	}

	return entity.Description{Type: local.Type.String(), SDP: local.SDP}, nil
}

func (that *WebRTCLink) setupChannel(channel *webrtc.DataChannel) {
	that.mu.Lock()
	that.channel = channel
	that.mu.Unlock()

	// connected is announced when the channel opens, not when the
	// transport reports connected; the session only cares that messages
	// can flow
	channel.OnOpen(func() {
		that.emit(StateConnected)
	})

	channel.OnClose(func() {
		that.emit(StateDisconnected)
	})

	channel.OnMessage(func(raw webrtc.DataChannelMessage) {
		msg, err := protocol.Decode(raw.Data)
		if err != nil {
			that.logger.Error("dropping malformed message", "error", err)
			return
		}

		select {
		case that.inbound <- msg:
		default:
			that.logger.Error("inbound buffer full, dropping message", "kind", msg.Kind)
		}
	})
}

func (that *WebRTCLink) onConnectionStateChange(state webrtc.PeerConnectionState) {
	switch state {
	case webrtc.PeerConnectionStateNew:
		that.emit(StateNew)
	case webrtc.PeerConnectionStateConnecting:
		that.emit(StateNegotiating)
	case webrtc.PeerConnectionStateConnected:
		// wait for the channel's OnOpen instead
	case webrtc.PeerConnectionStateDisconnected:
		that.emit(StateDisconnected)
	case webrtc.PeerConnectionStateFailed:
		that.emit(StateFailed)
	case webrtc.PeerConnectionStateClosed:
		that.emit(StateClosed)
	default:
	}
}

func (that *WebRTCLink) emit(state ConnState) {
	select {
	case that.states <- state:
	default:
		that.logger.Debug("state buffer full, dropping transition", "state", state)
	}
}
