package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	t.Run("Move", func(t *testing.T) {
		// Given: a move message
		msg := NewMove(4)

		// When: it round-trips through the wire format
		data, err := Encode(msg)
		require.NoError(t, err)

		decoded, err := Decode(data)
		require.NoError(t, err)

		// Then: kind and cell survive
		assert.Equal(t, KindMove, decoded.Kind)
		assert.Equal(t, 4, decoded.Move.Cell)
	})

	t.Run("Reset carries no payload", func(t *testing.T) {
		data, err := Encode(NewReset())
		require.NoError(t, err)

		decoded, err := Decode(data)
		require.NoError(t, err)

		assert.Equal(t, KindReset, decoded.Kind)
	})

	t.Run("Chat text is carried verbatim", func(t *testing.T) {
		data, err := Encode(NewChat(`hi there, "quotes" & emoji 🎮`))
		require.NoError(t, err)

		decoded, err := Decode(data)
		require.NoError(t, err)

		assert.Equal(t, KindChat, decoded.Kind)
		assert.Equal(t, `hi there, "quotes" & emoji 🎮`, decoded.Chat.Text)
	})

	t.Run("Disconnect with reason", func(t *testing.T) {
		data, err := Encode(NewDisconnect("peer left"))
		require.NoError(t, err)

		decoded, err := Decode(data)
		require.NoError(t, err)

		assert.Equal(t, KindDisconnect, decoded.Kind)
		assert.Equal(t, "peer left", decoded.Disconnect.Reason)
	})
}

func TestDecode(t *testing.T) {
	t.Run("Unknown kind decodes to the fallback, not an error", func(t *testing.T) {
		// Given: an envelope from a newer peer
		data := []byte(`{"kind":"emote","payload":{"face":"😀"}}`)

		// When: it is decoded
		msg, err := Decode(data)

		// Then: the receiver can log and drop it without failing
		require.NoError(t, err)
		assert.Equal(t, KindUnknown, msg.Kind)
	})

	t.Run("Malformed envelope is an error", func(t *testing.T) {
		_, err := Decode([]byte(`{"kind":`))

		require.Error(t, err)
	})

	t.Run("Malformed payload is an error", func(t *testing.T) {
		_, err := Decode([]byte(`{"kind":"move","payload":{"cell":"four"}}`))

		require.Error(t, err)
	})

	t.Run("Disconnect without payload still decodes", func(t *testing.T) {
		msg, err := Decode([]byte(`{"kind":"disconnect"}`))

		require.NoError(t, err)
		assert.Equal(t, KindDisconnect, msg.Kind)
		assert.Empty(t, msg.Disconnect.Reason)
	})
}

func TestEncode_UnknownKind(t *testing.T) {
	_, err := Encode(Message{Kind: KindUnknown})

	require.Error(t, err)
}
