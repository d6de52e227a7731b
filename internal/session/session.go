// Package session glues a connected client to the local rule engine: the
// same reducer operation runs whether an action originated here or was
// relayed from a peer, so every participant converges on the same state.
package session

import (
	"encoding/json"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/technomythic/hitster/internal/client"
	"github.com/technomythic/hitster/internal/game"
	"github.com/technomythic/hitster/internal/protocol"
)

var ErrNotStarted = errors.New("game has not started")

// Session drives one player's copy of a team game over a client connection.
type Session struct {
	client *client.Client

	mu   sync.Mutex
	game *game.Game
}

// New wires s into the client's game callbacks. Other callback slots stay
// free for the caller.
func New(c *client.Client) *Session {
	s := &Session{client: c}
	c.OnGameStarted = s.handleGameStarted
	c.OnGameAction = s.handleGameAction
	return s
}

// StartGame is the host path: build the opening snapshot and submit it. The
// local reducer initializes only when the coordinator broadcasts the
// snapshot back, the same path every other peer takes.
func (s *Session) StartGame(songs []game.Song, teams []game.Team) {
	s.client.StartGame(protocol.GameState{
		Songs: songs,
		Deck:  game.ShuffledIndices(len(songs)),
		Teams: teams,
	})
}

// PlaceCard applies a local placement: place, draw the next card, advance
// the turn, then tell the peers to do the same.
func (s *Session) PlaceCard(pos game.Position) error {
	s.mu.Lock()
	g := s.game
	if g == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	card := g.Current
	if err := g.PlaceCard(pos); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, err := g.DrawNext(); err != nil && !errors.Is(err, game.ErrRoundEnded) {
		s.mu.Unlock()
		return err
	}
	next := g.AdvanceTurn()
	s.mu.Unlock()

	if err := s.client.SendGameAction(protocol.ActionPlaceCard, protocol.PlaceCardData{Position: pos, Card: card}); err != nil {
		return err
	}
	return s.client.SendGameAction(protocol.ActionNextTurn, protocol.NextTurnData{TeamIndex: next})
}

// RevealYears reveals the current card's year locally and on every peer.
func (s *Session) RevealYears() error {
	s.mu.Lock()
	g := s.game
	if g == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	g.RevealYears()
	s.mu.Unlock()
	return s.client.SendGameAction(protocol.ActionRevealYears, struct{}{})
}

// CheckOrder verifies the local timeline ordering. Purely local; peers run
// the same check on their own converged state when they want it.
func (s *Session) CheckOrder() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return false, ErrNotStarted
	}
	return s.game.CheckOrder()
}

// Ended reports whether the deck ran out.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game != nil && s.game.Ended()
}

// Rankings returns teams by descending score.
func (s *Session) Rankings() []*game.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return nil
	}
	return s.game.TeamRankings()
}

// Game exposes the underlying reducer for rendering. Callers must not
// mutate it.
func (s *Session) Game() *game.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game
}

func (s *Session) handleGameStarted(state protocol.GameState) {
	g, err := game.NewTeamGame(state.Songs, state.Deck, state.Teams)
	if err != nil {
		log.Warnf("rejecting game snapshot: %v", err)
		return
	}
	if _, err := g.DrawNext(); err != nil {
		log.Warnf("rejecting game snapshot: %v", err)
		return
	}
	s.mu.Lock()
	s.game = g
	s.mu.Unlock()
}

// handleGameAction replays a peer's action on the local reducer. A relayed
// placement performs the full placement including the follow-up draw, so
// every peer's deck and timeline stay aligned with the acting peer's.
func (s *Session) handleGameAction(msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.game
	if g == nil {
		return
	}

	switch msg.Action {
	case protocol.ActionPlaceCard:
		var d protocol.PlaceCardData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			log.Warnf("dropping malformed place_card from %s: %v", msg.PlayerID, err)
			return
		}
		if err := g.PlaceCard(d.Position); err != nil {
			log.Warnf("dropping place_card from %s: %v", msg.PlayerID, err)
			return
		}
		if _, err := g.DrawNext(); err != nil && !errors.Is(err, game.ErrRoundEnded) {
			log.Warnf("draw after relayed place_card failed: %v", err)
		}

	case protocol.ActionRevealYears:
		g.RevealYears()

	case protocol.ActionNextTurn:
		var d protocol.NextTurnData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			log.Warnf("dropping malformed next_turn from %s: %v", msg.PlayerID, err)
			return
		}
		g.SetTurn(d.TeamIndex)

	default:
		log.Debugf("ignoring unknown game action %q from %s", msg.Action, msg.PlayerID)
	}
}
