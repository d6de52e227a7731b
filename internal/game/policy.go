package game

// TurnPolicy decides which roster index acts next. The solo game uses a
// fixed single actor; hot-seat and team games cycle round-robin.
type TurnPolicy interface {
	// Current returns the index of the acting player or team.
	Current() int
	// Advance moves to the next actor and reports whether the cycle wrapped
	// back to index 0.
	Advance() (next int, wrapped bool)
	// Set forces the current index, used when a relayed turn advance carries
	// the authoritative index from the acting peer.
	Set(i int)
}

type singleActor struct{}

func (singleActor) Current() int         { return 0 }
func (singleActor) Advance() (int, bool) { return 0, false }
func (singleActor) Set(int)              {}

// SingleActor returns the turn policy for solo play.
func SingleActor() TurnPolicy { return singleActor{} }

type roundRobin struct {
	n   int
	idx int
}

// RoundRobin returns a policy cycling over n actors.
func RoundRobin(n int) TurnPolicy {
	if n < 1 {
		n = 1
	}
	return &roundRobin{n: n}
}

func (r *roundRobin) Current() int { return r.idx }

func (r *roundRobin) Advance() (int, bool) {
	r.idx = (r.idx + 1) % r.n
	return r.idx, r.idx == 0
}

func (r *roundRobin) Set(i int) {
	if i >= 0 && i < r.n {
		r.idx = i
	}
}

// ScoringPolicy decides when points are awarded. CheckScoring awards on an
// explicit order check; PlacementScoring awards per placement.
type ScoringPolicy interface {
	OnPlacement(g *Game)
	OnCheck(g *Game, ordered bool)
}

type checkScoring struct{}

// CheckScoring awards timeline-length*10 points every time an order check
// passes. An unchanged, already-correct timeline re-awards on every check;
// that matches the shipped behavior and is deliberately not made idempotent.
func CheckScoring() ScoringPolicy { return checkScoring{} }

func (checkScoring) OnPlacement(*Game) {}

func (checkScoring) OnCheck(g *Game, ordered bool) {
	if ordered {
		g.award(len(g.Timeline) * 10)
	}
}

type placementScoring struct{}

// PlacementScoring awards 10 points to the acting side whenever the timeline
// is fully ordered right after an insertion. Only the state after this one
// placement matters; earlier temporarily-disordered placements are never
// separately penalized.
func PlacementScoring() ScoringPolicy { return placementScoring{} }

func (placementScoring) OnPlacement(g *Game) {
	if Ordered(g.Timeline) {
		g.award(10)
	}
}

func (placementScoring) OnCheck(*Game, bool) {}
