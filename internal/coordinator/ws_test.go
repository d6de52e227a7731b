package coordinator

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technomythic/hitster/internal/game"
	"github.com/technomythic/hitster/internal/protocol"
)

func startServer(t *testing.T) (*httptest.Server, *Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	store := NewStore()
	srv := httptest.NewServer(Handler(logger, store))
	t.Cleanup(srv.Close)
	return srv, store
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func send(t *testing.T, c *websocket.Conn, msg protocol.Message) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, msg))
}

func recv(t *testing.T, c *websocket.Conn) protocol.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var msg protocol.Message
	require.NoError(t, wsjson.Read(ctx, c, &msg))
	return msg
}

func TestCreateAndJoinFlow(t *testing.T) {
	srv, store := startServer(t)

	host := dial(t, srv)
	send(t, host, protocol.Message{
		Type:       protocol.TypeCreateRoom,
		PlayerID:   "p-host",
		PlayerName: "Host",
		Settings:   &protocol.Settings{TeamCount: 2},
	})
	created := recv(t, host)
	require.Equal(t, protocol.TypeRoomCreated, created.Type)
	require.NotEmpty(t, created.RoomCode)
	require.NotNil(t, created.IsHost)
	assert.True(t, *created.IsHost)
	assert.Equal(t, 1, store.Len())

	guest := dial(t, srv)
	send(t, guest, protocol.Message{
		Type:       protocol.TypeJoinRoom,
		PlayerID:   "p-guest",
		PlayerName: "Guest",
		RoomCode:   created.RoomCode,
	})

	joined := recv(t, guest)
	require.Equal(t, protocol.TypeRoomJoined, joined.Type)
	assert.Equal(t, created.RoomCode, joined.RoomCode)
	require.NotNil(t, joined.IsHost)
	assert.False(t, *joined.IsHost)
	assert.Len(t, joined.Players, 2)

	ann := recv(t, host)
	require.Equal(t, protocol.TypePlayerJoined, ann.Type)
	require.NotNil(t, ann.Player)
	assert.Equal(t, "p-guest", ann.Player.ID)
}

func TestJoinUnknownRoom(t *testing.T) {
	srv, _ := startServer(t)

	c := dial(t, srv)
	send(t, c, protocol.Message{
		Type:       protocol.TypeJoinRoom,
		PlayerID:   "p1",
		PlayerName: "P",
		RoomCode:   "NOPE99",
	})
	msg := recv(t, c)
	assert.Equal(t, protocol.TypeError, msg.Type)
	assert.Equal(t, "Room not found", msg.Message)
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	srv, store := startServer(t)

	c := dial(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{not json")))

	// The connection survives and still accepts commands.
	send(t, c, protocol.Message{
		Type:       protocol.TypeCreateRoom,
		PlayerID:   "p1",
		PlayerName: "P",
	})
	created := recv(t, c)
	assert.Equal(t, protocol.TypeRoomCreated, created.Type)
	assert.Equal(t, 1, store.Len())
}

func TestGameActionRelay(t *testing.T) {
	srv, _ := startServer(t)

	host := dial(t, srv)
	send(t, host, protocol.Message{Type: protocol.TypeCreateRoom, PlayerID: "p-host", PlayerName: "Host"})
	created := recv(t, host)

	guest := dial(t, srv)
	send(t, guest, protocol.Message{Type: protocol.TypeJoinRoom, PlayerID: "p-guest", PlayerName: "Guest", RoomCode: created.RoomCode})
	recv(t, guest) // room_joined
	recv(t, host)  // player_joined

	send(t, guest, protocol.Message{
		Type:   protocol.TypeGameAction,
		Action: protocol.ActionPlaceCard,
		Data:   []byte(`{"position":"before"}`),
	})

	relayed := recv(t, host)
	require.Equal(t, protocol.TypeGameAction, relayed.Type)
	assert.Equal(t, protocol.ActionPlaceCard, relayed.Action)
	assert.Equal(t, "p-guest", relayed.PlayerID)
	assert.JSONEq(t, `{"position":"before"}`, string(relayed.Data))
}

func TestStartGameBroadcast(t *testing.T) {
	srv, _ := startServer(t)

	host := dial(t, srv)
	send(t, host, protocol.Message{Type: protocol.TypeCreateRoom, PlayerID: "p-host", PlayerName: "Host"})
	created := recv(t, host)

	guest := dial(t, srv)
	send(t, guest, protocol.Message{Type: protocol.TypeJoinRoom, PlayerID: "p-guest", PlayerName: "Guest", RoomCode: created.RoomCode})
	recv(t, guest)
	recv(t, host)

	send(t, host, protocol.Message{
		Type: protocol.TypeStartGame,
		GameState: &protocol.GameState{
			Songs: []game.Song{{ID: "s", Title: "T", Artist: "A", Year: 2001}},
			Deck:  []int{0},
			Teams: []game.Team{{ID: 0, Name: "Team 1"}},
		},
	})

	for _, c := range []*websocket.Conn{host, guest} {
		msg := recv(t, c)
		require.Equal(t, protocol.TypeGameStarted, msg.Type)
		require.NotNil(t, msg.GameState)
		assert.Len(t, msg.GameState.Songs, 1)
	}
}

func TestDisconnectTriggersHostFailover(t *testing.T) {
	srv, _ := startServer(t)

	host := dial(t, srv)
	send(t, host, protocol.Message{Type: protocol.TypeCreateRoom, PlayerID: "p-host", PlayerName: "Host"})
	created := recv(t, host)

	guest := dial(t, srv)
	send(t, guest, protocol.Message{Type: protocol.TypeJoinRoom, PlayerID: "p-guest", PlayerName: "Guest", RoomCode: created.RoomCode})
	recv(t, guest)
	recv(t, host)

	require.NoError(t, host.Close(websocket.StatusNormalClosure, "bye"))

	promo := recv(t, guest)
	require.Equal(t, protocol.TypeHostTransferred, promo.Type)
	require.NotNil(t, promo.IsHost)
	assert.True(t, *promo.IsHost)

	left := recv(t, guest)
	require.Equal(t, protocol.TypePlayerLeft, left.Type)
	assert.Equal(t, "p-host", left.PlayerID)
}

func TestExplicitLeaveDestroysEmptyRoom(t *testing.T) {
	srv, store := startServer(t)

	c := dial(t, srv)
	send(t, c, protocol.Message{Type: protocol.TypeCreateRoom, PlayerID: "p1", PlayerName: "P"})
	recv(t, c)
	require.Equal(t, 1, store.Len())

	send(t, c, protocol.Message{Type: protocol.TypeLeaveRoom})
	require.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
