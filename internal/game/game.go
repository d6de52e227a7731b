package game

import (
	"errors"
	"math/rand"
	"sort"
)

// Position selects which end of the timeline an insertion targets.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
)

// Phase tracks where the round currently stands.
type Phase int

const (
	// PhaseAwaitingCard: no current card is in play; a draw is expected next.
	PhaseAwaitingCard Phase = iota
	// PhaseCardDrawn: a current card exists and must be placed.
	PhaseCardDrawn
	// PhaseRoundEnded: the deck ran out; only rankings remain meaningful.
	PhaseRoundEnded
)

var (
	ErrRoundEnded       = errors.New("round has ended")
	ErrNoCurrentCard    = errors.New("no current card to place")
	ErrCardPending      = errors.New("current card must be placed first")
	ErrTimelineTooShort = errors.New("timeline needs at least two cards")
)

// Game is the rule engine shared by the solo, hot-seat and team variants.
// It is not safe for concurrent use; callers serialize access.
type Game struct {
	Songs    []Song
	Deck     []Song
	Timeline []Song
	Current  *Song
	Revealed bool
	Phase    Phase

	Score int
	Round int

	Players []*Player
	Teams   []*Team

	turns   TurnPolicy
	scoring ScoringPolicy
}

// NewSolo builds a single-player game: shuffled deck, one anchor card on the
// timeline, first card already drawn.
func NewSolo(songs []Song) (*Game, error) {
	g := &Game{
		Songs:   songs,
		Deck:    shuffled(songs),
		turns:   SingleActor(),
		scoring: CheckScoring(),
	}
	if err := g.anchor(); err != nil {
		return nil, err
	}
	if _, err := g.DrawNext(); err != nil {
		return nil, err
	}
	return g, nil
}

// NewHotSeat builds a pass-the-device game for the named players. Placement
// scoring, round-robin turns, anchor card and first draw as in solo.
func NewHotSeat(songs []Song, names []string) (*Game, error) {
	players := make([]*Player, len(names))
	for i, n := range names {
		players[i] = &Player{Name: n}
	}
	g := &Game{
		Songs:   songs,
		Deck:    shuffled(songs),
		Players: players,
		turns:   RoundRobin(len(players)),
		scoring: PlacementScoring(),
	}
	if err := g.anchor(); err != nil {
		return nil, err
	}
	if _, err := g.DrawNext(); err != nil {
		return nil, err
	}
	return g, nil
}

// NewTeamGame builds the multiplayer team variant from a shared snapshot: the
// full song list plus the deck as a list of indices into it, so every peer
// reconstructs the identical deck order. The timeline starts empty and no
// card is auto-drawn; the acting peer draws explicitly.
func NewTeamGame(songs []Song, deck []int, teams []Team) (*Game, error) {
	d := make([]Song, 0, len(deck))
	for _, idx := range deck {
		if idx < 0 || idx >= len(songs) {
			return nil, errors.New("deck index out of range")
		}
		d = append(d, songs[idx])
	}
	ts := make([]*Team, len(teams))
	for i := range teams {
		t := teams[i]
		ts[i] = &t
	}
	return &Game{
		Songs:   songs,
		Deck:    d,
		Teams:   ts,
		turns:   RoundRobin(len(ts)),
		scoring: PlacementScoring(),
	}, nil
}

// anchor pops one card straight onto the timeline to seed solo and hot-seat
// games.
func (g *Game) anchor() error {
	if len(g.Deck) == 0 {
		return ErrRoundEnded
	}
	last := len(g.Deck) - 1
	g.Timeline = append(g.Timeline, g.Deck[last])
	g.Deck = g.Deck[:last]
	return nil
}

// DrawNext pops the top of the deck into the current-card slot and clears the
// reveal flag. An empty deck ends the round.
func (g *Game) DrawNext() (*Song, error) {
	if g.Phase == PhaseRoundEnded {
		return nil, ErrRoundEnded
	}
	if g.Current != nil {
		return nil, ErrCardPending
	}
	if len(g.Deck) == 0 {
		g.Phase = PhaseRoundEnded
		return nil, ErrRoundEnded
	}
	last := len(g.Deck) - 1
	card := g.Deck[last]
	g.Deck = g.Deck[:last]
	g.Current = &card
	g.Revealed = false
	g.Phase = PhaseCardDrawn
	return g.Current, nil
}

// PlaceCard moves the current card onto the chosen end of the timeline and
// lets the scoring policy react. The acting player's placement counter is
// bumped in hot-seat games.
func (g *Game) PlaceCard(pos Position) error {
	if g.Phase == PhaseRoundEnded {
		return ErrRoundEnded
	}
	if g.Current == nil {
		return ErrNoCurrentCard
	}
	card := *g.Current
	switch pos {
	case Before:
		g.Timeline = append([]Song{card}, g.Timeline...)
	case After:
		g.Timeline = append(g.Timeline, card)
	default:
		return errors.New("unknown position: " + string(pos))
	}
	g.Current = nil
	g.Phase = PhaseAwaitingCard
	if len(g.Players) > 0 {
		g.Players[g.turns.Current()].CardsPlaced++
	}
	g.scoring.OnPlacement(g)
	return nil
}

// RevealYears flips the reveal flag for the current card. It stays set until
// the next draw.
func (g *Game) RevealYears() {
	g.Revealed = true
}

// CheckOrder reports whether the timeline is in non-decreasing year order and
// lets the scoring policy react. Ties count as ordered.
func (g *Game) CheckOrder() (bool, error) {
	if len(g.Timeline) < 2 {
		return false, ErrTimelineTooShort
	}
	ok := Ordered(g.Timeline)
	g.scoring.OnCheck(g, ok)
	return ok, nil
}

// Ordered reports whether years never decrease left to right.
func Ordered(songs []Song) bool {
	for i := 0; i+1 < len(songs); i++ {
		if songs[i].Year > songs[i+1].Year {
			return false
		}
	}
	return true
}

// AdvanceTurn moves to the next actor. A full cycle bumps the round counter
// and clears the reveal flag.
func (g *Game) AdvanceTurn() int {
	next, wrapped := g.turns.Advance()
	if wrapped {
		g.Round++
		g.Revealed = false
	}
	return next
}

// SetTurn forces the turn index, used when a relayed turn advance carries the
// acting peer's authoritative index.
func (g *Game) SetTurn(i int) {
	g.turns.Set(i)
}

// TurnIndex returns the acting player or team index.
func (g *Game) TurnIndex() int {
	return g.turns.Current()
}

// Ended reports whether the deck ran out.
func (g *Game) Ended() bool {
	return g.Phase == PhaseRoundEnded
}

// award credits points to whichever scoring unit is acting: the current team
// in team games, the current player in hot-seat, otherwise the shared score.
func (g *Game) award(points int) {
	switch {
	case len(g.Teams) > 0:
		g.Teams[g.turns.Current()].Score += points
	case len(g.Players) > 0:
		g.Players[g.turns.Current()].Score += points
	default:
		g.Score += points
	}
}

// TeamRankings returns teams ordered by descending score, stable on ties.
func (g *Game) TeamRankings() []*Team {
	out := make([]*Team, len(g.Teams))
	copy(out, g.Teams)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// PlayerRankings returns players ordered by descending score, stable on ties.
func (g *Game) PlayerRankings() []*Player {
	out := make([]*Player, len(g.Players))
	copy(out, g.Players)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func shuffled(songs []Song) []Song {
	deck := make([]Song, len(songs))
	copy(deck, songs)
	rand.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// ShuffledIndices returns a random permutation of [0, n), used by the host to
// build the shared deck snapshot.
func ShuffledIndices(n int) []int {
	return rand.Perm(n)
}
