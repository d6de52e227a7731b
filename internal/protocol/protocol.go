// Package protocol defines the JSON wire format shared by the room
// coordinator and the session client. Every frame is one Message envelope
// with a type discriminator; unused fields are omitted.
package protocol

import (
	"encoding/json"

	"github.com/technomythic/hitster/internal/game"
)

// Client → server message types.
const (
	TypeCreateRoom  = "create_room"
	TypeJoinRoom    = "join_room"
	TypeLeaveRoom   = "leave_room"
	TypeUpdateTeams = "update_teams"
	TypeStartGame   = "start_game"
	TypeGameAction  = "game_action"
)

// Server → client message types.
const (
	TypeRoomCreated     = "room_created"
	TypeRoomJoined      = "room_joined"
	TypePlayerJoined    = "player_joined"
	TypePlayerLeft      = "player_left"
	TypeHostTransferred = "host_transferred"
	TypeTeamsUpdated    = "teams_updated"
	TypeGameStarted     = "game_started"
	TypeError           = "error"
)

// Game actions relayed opaquely by the coordinator. The coordinator never
// looks inside Data; only peers interpret these.
const (
	ActionPlaceCard   = "place_card"
	ActionRevealYears = "reveal_years"
	ActionNextTurn    = "next_turn"
)

// Settings are chosen by the room creator and echoed to joiners.
type Settings struct {
	TeamCount   int    `json:"teamCount"`
	CardsToWin  int    `json:"cardsToWin,omitempty"`
	MusicSource string `json:"musicSource,omitempty"`
}

// Player is a room roster entry. Team is nil until assigned.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Team *int   `json:"team"`
}

// PlayerTeam is one assignment in an update_teams request.
type PlayerTeam struct {
	PlayerID string `json:"playerId"`
	Team     *int   `json:"team"`
}

// GameState is the start-of-game snapshot the host broadcasts. Deck holds
// indices into Songs so every peer reconstructs the same draw order.
type GameState struct {
	Songs []game.Song `json:"songs"`
	Deck  []int       `json:"deck"`
	Teams []game.Team `json:"teams"`
}

// Message is the single wire envelope. Which fields are set depends on Type.
type Message struct {
	Type string `json:"type"`

	PlayerID   string    `json:"playerId,omitempty"`
	PlayerName string    `json:"playerName,omitempty"`
	RoomCode   string    `json:"roomCode,omitempty"`
	Settings   *Settings `json:"settings,omitempty"`

	IsHost  *bool    `json:"isHost,omitempty"`
	Player  *Player  `json:"player,omitempty"`
	Players []Player `json:"players,omitempty"`

	Teams       []game.Team  `json:"teams,omitempty"`
	PlayerTeams []PlayerTeam `json:"playerTeams,omitempty"`

	GameState *GameState `json:"gameState,omitempty"`

	Action string          `json:"action,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`

	Message string `json:"message,omitempty"`
}

// PlaceCardData is the payload of a place_card action. Card carries the
// placed song so spectating peers can render it before their own draw.
type PlaceCardData struct {
	Position game.Position `json:"position"`
	Card     *game.Song    `json:"card,omitempty"`
}

// NextTurnData is the payload of a next_turn action.
type NextTurnData struct {
	TeamIndex int `json:"teamIndex"`
}

// Bool returns a pointer to v for optional envelope fields.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v for optional team indices.
func Int(v int) *int { return &v }
