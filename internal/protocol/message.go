// Package protocol defines the envelope exchanged over the data channel once
// the handshake completes. The protocol is fire-and-forget: no acks, no
// sequence numbers, no error replies. Stale or malformed messages are
// dropped by the receiver.
package protocol

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindMove       Kind = "move"
	KindReset      Kind = "reset"
	KindChat       Kind = "chat"
	KindDisconnect Kind = "disconnect"

	// KindUnknown is the fallback for kinds this build does not know.
	// Receivers log and drop these, which keeps the protocol forward
	// compatible.
	KindUnknown Kind = "unknown"
)

// envelope is the wire shape: a kind tag and a raw payload.
type envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type MovePayload struct {
	Cell int `json:"cell"`
}

type ChatPayload struct {
	Text string `json:"text"`
}

type DisconnectPayload struct {
	Reason string `json:"reason,omitempty"`
}

// Message is the decoded form: a closed sum over the four known kinds. For a
// given Kind exactly one payload field is meaningful.
type Message struct {
	Kind       Kind
	Move       MovePayload
	Chat       ChatPayload
	Disconnect DisconnectPayload
}

func NewMove(cell int) Message {
	return Message{Kind: KindMove, Move: MovePayload{Cell: cell}}
}

func NewReset() Message {
	return Message{Kind: KindReset}
}

func NewChat(text string) Message {
	return Message{Kind: KindChat, Chat: ChatPayload{Text: text}}
}

func NewDisconnect(reason string) Message {
	return Message{Kind: KindDisconnect, Disconnect: DisconnectPayload{Reason: reason}}
}

// Encode serializes a message into its wire envelope.
func Encode(msg Message) ([]byte, error) {
	var payload any

	switch msg.Kind {
	case KindMove:
		payload = msg.Move
	case KindReset:
		payload = struct{}{}
	case KindChat:
		payload = msg.Chat
	case KindDisconnect:
		payload = msg.Disconnect
	default:
		return nil, fmt.Errorf("cannot encode message kind %q", msg.Kind)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	data, err := json.Marshal(envelope{Kind: msg.Kind, Payload: payloadJSON})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return data, nil
}

// Decode parses a wire envelope. An unrecognized kind decodes to KindUnknown
// rather than an error so a newer peer never kills the receive loop.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	msg := Message{Kind: env.Kind}

	switch env.Kind {
	case KindMove:
		if err := json.Unmarshal(env.Payload, &msg.Move); err != nil {
			return Message{}, fmt.Errorf("failed to unmarshal move payload: %w", err)
		}
	case KindReset:
		// no payload
	case KindChat:
		if err := json.Unmarshal(env.Payload, &msg.Chat); err != nil {
			return Message{}, fmt.Errorf("failed to unmarshal chat payload: %w", err)
		}
	case KindDisconnect:
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &msg.Disconnect); err != nil {
				return Message{}, fmt.Errorf("failed to unmarshal disconnect payload: %w", err)
			}
		}
	default:
		msg.Kind = KindUnknown
	}

	return msg, nil
}
