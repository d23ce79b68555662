package entity

const (
	// StatusConnecting complements the game statuses in game.go: a session
	// is connecting while the handshake or signaling is still in flight.
	StatusConnecting = "connecting"

	ModeOffline     = "offline"
	ModeMultiplayer = "multiplayer"

	RoleNone  = "none"
	RoleHost  = "host"
	RoleGuest = "guest"

	ConnDisconnected = "disconnected"
	ConnNegotiating  = "negotiating"
	ConnConnected    = "connected"
)

const (
	SenderYou    = "You"
	SenderPeer   = "Peer"
	SenderSystem = "System"
)

// ChatEntry is one line of the session chat log. System entries narrate
// connection lifecycle events and are never sent over the wire.
type ChatEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Session holds everything the UI needs to render a multiplayer session.
// Status and ConnectionState are independent: a session can still be playing
// while the link underneath has degraded to disconnected.
type Session struct {
	Mode            string      `json:"mode"`
	Role            string      `json:"role"`
	LocalMark       string      `json:"local_mark"`
	Status          string      `json:"status"`
	ConnectionState string      `json:"connection_state"`
	RoomCode        string      `json:"room_code"`
	ChatLog         []ChatEntry `json:"chat_log"`
}

func NewSession() *Session {
	return &Session{
		Mode:            ModeOffline,
		Role:            RoleNone,
		Status:          StatusWaiting,
		ConnectionState: ConnDisconnected,
	}
}

// AppendChat appends one entry; the log is append-only.
func (that *Session) AppendChat(sender, text string) {
	that.ChatLog = append(that.ChatLog, ChatEntry{Sender: sender, Text: text})
}
