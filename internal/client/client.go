// Package client implements the player-side connection to the room
// coordinator: one WebSocket, fire-and-forget commands, and one callback
// slot per event kind.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/technomythic/hitster/internal/game"
	"github.com/technomythic/hitster/internal/protocol"
)

const writeTimeout = 5 * time.Second

// Config carries the connection parameters.
type Config struct {
	// ServerURL is the coordinator's WebSocket endpoint, e.g. ws://host:3001/ws.
	ServerURL string
	// PlayerName is the display name announced to rooms.
	PlayerName string
}

// Client is one player's session with the coordinator. The player id is
// generated locally at construction and is opaque to the server.
//
// Callback slots fire from the read loop goroutine; reassigning one after
// Connect races with delivery, so wire them up first.
type Client struct {
	cfg      Config
	playerID string

	mu       sync.Mutex
	conn     *websocket.Conn
	open     bool
	roomCode string
	isHost   bool
	players  []protocol.Player
	teams    []game.Team

	OnRoomCreated  func(code string)
	OnRoomJoined   func(msg protocol.Message)
	OnPlayerJoined func(p protocol.Player)
	OnPlayerLeft   func(playerID string)
	OnTeamsUpdated func(teams []game.Team, assignments []protocol.PlayerTeam)
	OnGameStarted  func(state protocol.GameState)
	OnGameAction   func(msg protocol.Message)
	OnError        func(message string)
	OnDisconnect   func(err error)
}

// New builds an unconnected client with a fresh opaque player id.
func New(cfg Config) *Client {
	return &Client{
		cfg:      cfg,
		playerID: "player_" + uuid.NewString(),
	}
}

// Connect dials the coordinator and starts the read loop. It returns once
// the transport is open; room membership comes later via callbacks.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.cfg.ServerURL, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.open = true
	c.mu.Unlock()

	go c.readLoop()
	return nil
}

// Close shuts the connection down. Pending sends are abandoned.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.open = false
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		var msg protocol.Message
		if err := wsjson.Read(context.Background(), conn, &msg); err != nil {
			c.mu.Lock()
			c.open = false
			c.mu.Unlock()
			if cb := c.OnDisconnect; cb != nil {
				cb(err)
			}
			return
		}
		c.handle(msg)
	}
}

// handle updates the local mirrors, then fires the matching callback slot.
func (c *Client) handle(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeRoomCreated:
		c.mu.Lock()
		c.roomCode = msg.RoomCode
		c.isHost = msg.IsHost != nil && *msg.IsHost
		c.players = []protocol.Player{{ID: c.playerID, Name: c.cfg.PlayerName}}
		c.mu.Unlock()
		if cb := c.OnRoomCreated; cb != nil {
			cb(msg.RoomCode)
		}

	case protocol.TypeRoomJoined:
		c.mu.Lock()
		c.roomCode = msg.RoomCode
		c.isHost = msg.IsHost != nil && *msg.IsHost
		c.players = append([]protocol.Player(nil), msg.Players...)
		c.teams = append([]game.Team(nil), msg.Teams...)
		c.mu.Unlock()
		if cb := c.OnRoomJoined; cb != nil {
			cb(msg)
		}

	case protocol.TypePlayerJoined:
		if msg.Player == nil {
			return
		}
		c.mu.Lock()
		c.players = append(c.players, *msg.Player)
		c.mu.Unlock()
		if cb := c.OnPlayerJoined; cb != nil {
			cb(*msg.Player)
		}

	case protocol.TypePlayerLeft:
		c.mu.Lock()
		for i, p := range c.players {
			if p.ID == msg.PlayerID {
				c.players = append(c.players[:i], c.players[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
		if cb := c.OnPlayerLeft; cb != nil {
			cb(msg.PlayerID)
		}

	case protocol.TypeHostTransferred:
		// Addressed only to the promoted player, so the payload is implied.
		c.mu.Lock()
		c.isHost = true
		c.mu.Unlock()

	case protocol.TypeTeamsUpdated:
		c.mu.Lock()
		c.teams = append([]game.Team(nil), msg.Teams...)
		for _, a := range msg.PlayerTeams {
			for i := range c.players {
				if c.players[i].ID == a.PlayerID {
					c.players[i].Team = a.Team
					break
				}
			}
		}
		c.mu.Unlock()
		if cb := c.OnTeamsUpdated; cb != nil {
			cb(msg.Teams, msg.PlayerTeams)
		}

	case protocol.TypeGameStarted:
		if msg.GameState == nil {
			return
		}
		if cb := c.OnGameStarted; cb != nil {
			cb(*msg.GameState)
		}

	case protocol.TypeGameAction:
		if cb := c.OnGameAction; cb != nil {
			cb(msg)
		}

	case protocol.TypeError:
		if cb := c.OnError; cb != nil {
			cb(msg.Message)
		}
	}
}

// send is fire and forget: commands issued before Connect or after the
// connection dropped are silently discarded.
func (c *Client) send(msg protocol.Message) {
	c.mu.Lock()
	conn, open := c.conn, c.open
	c.mu.Unlock()
	if conn == nil || !open {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, msg)
}

// CreateRoom asks the coordinator for a new room with the given settings.
func (c *Client) CreateRoom(settings protocol.Settings) {
	c.send(protocol.Message{
		Type:       protocol.TypeCreateRoom,
		PlayerID:   c.playerID,
		PlayerName: c.cfg.PlayerName,
		Settings:   &settings,
	})
}

// JoinRoom asks to join an existing room by code.
func (c *Client) JoinRoom(code string) {
	c.send(protocol.Message{
		Type:       protocol.TypeJoinRoom,
		PlayerID:   c.playerID,
		PlayerName: c.cfg.PlayerName,
		RoomCode:   code,
	})
}

// LeaveRoom leaves the current room, if any.
func (c *Client) LeaveRoom() {
	c.send(protocol.Message{Type: protocol.TypeLeaveRoom})
	c.mu.Lock()
	c.roomCode = ""
	c.isHost = false
	c.players = nil
	c.teams = nil
	c.mu.Unlock()
}

// UpdateTeams submits the team list and player assignments. The coordinator
// ignores it unless this client is host.
func (c *Client) UpdateTeams(teams []game.Team, assignments []protocol.PlayerTeam) {
	c.send(protocol.Message{Type: protocol.TypeUpdateTeams, Teams: teams, PlayerTeams: assignments})
}

// StartGame submits the opening snapshot. The coordinator ignores it unless
// this client is host; the game actually starts when the broadcast comes
// back around.
func (c *Client) StartGame(state protocol.GameState) {
	c.send(protocol.Message{Type: protocol.TypeStartGame, GameState: &state})
}

// SendGameAction relays an opaque action to the other players in the room.
func (c *Client) SendGameAction(action string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.send(protocol.Message{Type: protocol.TypeGameAction, Action: action, Data: raw})
	return nil
}

// PlayerID returns the locally generated opaque id.
func (c *Client) PlayerID() string { return c.playerID }

// RoomCode returns the current room code, empty when not in a room.
func (c *Client) RoomCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode
}

// IsHost reports whether this client currently hosts its room.
func (c *Client) IsHost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHost
}

// Players returns a copy of the known roster.
func (c *Client) Players() []protocol.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Player(nil), c.players...)
}

// Teams returns a copy of the known team list.
func (c *Client) Teams() []game.Team {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]game.Team(nil), c.teams...)
}
