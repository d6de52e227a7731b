package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"github.com/technomythic/hitster/internal/middleware"
	"github.com/technomythic/hitster/internal/protocol"
)

const (
	outBufferSize = 16
	writeTimeout  = 5 * time.Second
	pingInterval  = 30 * time.Second
	pingTimeout   = 10 * time.Second
)

// Handler upgrades to WebSocket and runs the room protocol for one player
// connection until it closes.
func Handler(logger *logrus.Logger, store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept failed: %v", err)
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := &PlayerConn{
			Cancel: cancel,
			Out:    make(chan protocol.Message, outBufferSize),
		}
		go writePump(ctx, logger, c, conn.Out)

		err = readPump(ctx, logger, c, conn, store)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readPump consumes frames and dispatches them. Room membership is tracked
// locally so the deferred leave fires exactly once, whether the player left
// explicitly or the socket dropped.
func readPump(ctx context.Context, logger *logrus.Logger, c *websocket.Conn, conn *PlayerConn, store *Store) error {
	var (
		room   *Room
		player *Player
	)
	defer func() {
		if room != nil && player != nil {
			room.Leave(player)
		}
	}()

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// A malformed frame is the sender's problem, not grounds to
			// drop the connection.
			logger.Warnf("dropping malformed frame: %v", err)
			continue
		}
		if msg.Type == "" {
			logger.Warn("dropping frame without type")
			continue
		}

		switch msg.Type {
		case protocol.TypeCreateRoom:
			if room != nil {
				continue
			}
			settings := protocol.Settings{TeamCount: 2, CardsToWin: 10, MusicSource: "local"}
			if msg.Settings != nil {
				settings = *msg.Settings
			}
			conn.PlayerID = msg.PlayerID
			conn.Name = msg.PlayerName
			player = &Player{ID: msg.PlayerID, Name: msg.PlayerName, Conn: conn}
			room = store.Create(player, settings)
			conn.Send(protocol.Message{
				Type:     protocol.TypeRoomCreated,
				RoomCode: room.Code,
				IsHost:   protocol.Bool(true),
			})

		case protocol.TypeJoinRoom:
			if room != nil {
				continue
			}
			target, err := store.Get(msg.RoomCode)
			if err != nil {
				conn.SendError(err.Error())
				continue
			}
			conn.PlayerID = msg.PlayerID
			conn.Name = msg.PlayerName
			p := &Player{ID: msg.PlayerID, Name: msg.PlayerName, Conn: conn}
			if err := target.Join(p); err != nil {
				conn.SendError(err.Error())
				continue
			}
			room, player = target, p

		case protocol.TypeLeaveRoom:
			if room == nil {
				continue
			}
			room.Leave(player)
			room, player = nil, nil

		case protocol.TypeUpdateTeams:
			if room == nil {
				continue
			}
			room.UpdateTeams(player, msg.Teams, msg.PlayerTeams)

		case protocol.TypeStartGame:
			if room == nil {
				continue
			}
			room.StartGame(player, msg.GameState)

		case protocol.TypeGameAction:
			if room == nil {
				continue
			}
			room.Relay(player, msg.Action, msg.Data)

		default:
			logger.Warnf("dropping frame with unknown type %q", msg.Type)
		}
	}
}

// writePump drains the out-channel onto the socket and keeps the connection
// alive with periodic pings. Any write failure tears the connection down.
func writePump(ctx context.Context, logger *logrus.Logger, c *websocket.Conn, out <-chan protocol.Message) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c, msg)
			cancel()
			if err != nil {
				logger.Debugf("write failed, closing connection: %v", err)
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.Ping(pctx)
			cancel()
			if err != nil {
				logger.Debugf("ping failed, closing connection: %v", err)
				return
			}
		}
	}
}
