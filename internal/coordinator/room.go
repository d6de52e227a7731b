package coordinator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/technomythic/hitster/internal/game"
	"github.com/technomythic/hitster/internal/protocol"
)

// MaxPlayers caps room membership.
const MaxPlayers = 10

// Error texts double as the wire-level error messages.
var (
	ErrRoomNotFound = errors.New("Room not found")
	ErrRoomFull     = errors.New("Room is full")
)

// Player is one room member. Team stays nil until the host assigns one.
type Player struct {
	ID   string
	Name string
	Team *int
	Conn *PlayerConn
}

func (p *Player) wire() protocol.Player {
	return protocol.Player{ID: p.ID, Name: p.Name, Team: p.Team}
}

// Room holds the authoritative membership and team state for one room. All
// game semantics stay opaque to it; game_action frames are relayed verbatim.
type Room struct {
	Code string

	mu        sync.Mutex
	players   []*Player
	host      *Player
	teams     []game.Team
	settings  protocol.Settings
	gameState *protocol.GameState

	// OnEmpty runs after the last player leaves, outside the room lock.
	OnEmpty func(code string)
}

// NewRoom seeds a room with its creator as host and default-named teams per
// the creator's settings.
func NewRoom(code string, creator *Player, settings protocol.Settings) *Room {
	r := &Room{Code: code, settings: settings}
	r.teams = defaultTeams(settings.TeamCount)
	r.players = append(r.players, creator)
	r.host = creator
	return r
}

func defaultTeams(n int) []game.Team {
	if n < 1 {
		n = 2
	}
	teams := make([]game.Team, n)
	for i := range teams {
		teams[i] = game.Team{ID: i, Name: fmt.Sprintf("Team %d", i+1)}
	}
	return teams
}

// Join adds p to the room, sends the joiner its room snapshot and announces
// the arrival to everyone else.
func (r *Room) Join(p *Player) error {
	r.mu.Lock()
	if len(r.players) >= MaxPlayers {
		r.mu.Unlock()
		return ErrRoomFull
	}
	r.players = append(r.players, p)
	snapshot := protocol.Message{
		Type:     protocol.TypeRoomJoined,
		RoomCode: r.Code,
		IsHost:   protocol.Bool(p == r.host),
		Players:  r.roster(),
		Teams:    append([]game.Team(nil), r.teams...),
		Settings: &r.settings,
	}
	joined := protocol.Message{
		Type:   protocol.TypePlayerJoined,
		Player: ptrWire(p),
	}
	others := r.connsExcept(p)
	r.mu.Unlock()

	p.Conn.Send(snapshot)
	for _, c := range others {
		c.Send(joined)
	}
	return nil
}

// Leave removes p, promotes a new host if needed and announces the
// departure. The empty-room callback fires outside the lock.
func (r *Room) Leave(p *Player) {
	r.mu.Lock()
	idx := -1
	for i, q := range r.players {
		if q == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	if len(r.players) == 0 {
		onEmpty := r.OnEmpty
		r.mu.Unlock()
		if onEmpty != nil {
			onEmpty(r.Code)
		}
		return
	}

	var newHost *PlayerConn
	if r.host == p {
		r.host = r.players[0]
		newHost = r.host.Conn
	}
	left := protocol.Message{Type: protocol.TypePlayerLeft, PlayerID: p.ID}
	remaining := r.connsExcept(nil)
	r.mu.Unlock()

	// The successor learns of its promotion before seeing the departure.
	if newHost != nil {
		newHost.Send(protocol.Message{Type: protocol.TypeHostTransferred, IsHost: protocol.Bool(true)})
	}
	for _, c := range remaining {
		c.Send(left)
	}
}

// UpdateTeams replaces the team list with the host's version, applies the
// submitted assignments and broadcasts the new rosters to everyone, sender
// included. Non-host requests are ignored.
func (r *Room) UpdateTeams(sender *Player, teams []game.Team, assignments []protocol.PlayerTeam) {
	r.mu.Lock()
	if sender != r.host {
		r.mu.Unlock()
		return
	}
	if len(teams) > 0 {
		r.teams = append([]game.Team(nil), teams...)
	}
	for _, a := range assignments {
		for _, p := range r.players {
			if p.ID == a.PlayerID {
				p.Team = a.Team
				break
			}
		}
	}
	msg := protocol.Message{
		Type:        protocol.TypeTeamsUpdated,
		Teams:       append([]game.Team(nil), r.teams...),
		PlayerTeams: r.assignmentsLocked(),
	}
	conns := r.connsExcept(nil)
	r.mu.Unlock()

	for _, c := range conns {
		c.Send(msg)
	}
}

// StartGame stores the host's opening snapshot and broadcasts it verbatim to
// every player, the host included. Non-host requests are ignored.
func (r *Room) StartGame(sender *Player, state *protocol.GameState) {
	r.mu.Lock()
	if sender != r.host || state == nil {
		r.mu.Unlock()
		return
	}
	r.gameState = state
	msg := protocol.Message{Type: protocol.TypeGameStarted, GameState: state}
	conns := r.connsExcept(nil)
	r.mu.Unlock()

	for _, c := range conns {
		c.Send(msg)
	}
}

// Relay forwards a game action to every player except its sender. The
// payload is never inspected.
func (r *Room) Relay(sender *Player, action string, data []byte) {
	r.mu.Lock()
	msg := protocol.Message{
		Type:     protocol.TypeGameAction,
		Action:   action,
		PlayerID: sender.ID,
		Data:     data,
	}
	conns := r.connsExcept(sender)
	r.mu.Unlock()

	for _, c := range conns {
		c.Send(msg)
	}
}

// Host returns the current host's id, for tests and diagnostics.
func (r *Room) Host() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.host == nil {
		return ""
	}
	return r.host.ID
}

// Len returns the current player count.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) roster() []protocol.Player {
	out := make([]protocol.Player, len(r.players))
	for i, p := range r.players {
		out[i] = p.wire()
	}
	return out
}

func (r *Room) assignmentsLocked() []protocol.PlayerTeam {
	out := make([]protocol.PlayerTeam, len(r.players))
	for i, p := range r.players {
		out[i] = protocol.PlayerTeam{PlayerID: p.ID, Team: p.Team}
	}
	return out
}

func (r *Room) connsExcept(skip *Player) []*PlayerConn {
	out := make([]*PlayerConn, 0, len(r.players))
	for _, p := range r.players {
		if p != skip {
			out = append(out, p.Conn)
		}
	}
	return out
}

func ptrWire(p *Player) *protocol.Player {
	w := p.wire()
	return &w
}
