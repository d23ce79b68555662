package entity

import "time"

// RoomTTL is how long a signaling room stays valid. A room with no answer
// after the TTL is garbage and gets reclaimed by the sweep.
const RoomTTL = time.Hour

// Description is one half of the connection handshake (an offer or an
// answer). Everything outside the peer link treats it as an opaque value and
// only transports it.
type Description struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

func (that Description) IsZero() bool {
	return that.Type == "" && that.SDP == ""
}

// SignalingRoom is the rendezvous record the host publishes to the
// directory. It is mutated exactly once, by the guest's answer write.
type SignalingRoom struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Code      string       `json:"code"`
	HostID    string       `json:"host_id"`
	Offer     *Description `json:"offer,omitempty"`
	Answer    *Description `json:"answer,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func (that *SignalingRoom) IsExpired(now time.Time) bool {
	return now.After(that.ExpiresAt)
}
