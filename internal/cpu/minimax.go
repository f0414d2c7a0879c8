package cpu

import (
	"context"
	"math"

	"github.com/robalobadob/tab/internal/rules"
	"github.com/robalobadob/tab/internal/track"
)

const (
	defaultDepth = 2
	winScore     = 1e6
	pieceWeight  = 100
)

// Expectiminimax searches Depth plies alternating chance nodes over the
// stick distribution with choice nodes. A bonus roll keeps the same side
// (and role) on the next ply. Positions are copied into each branch.
type Expectiminimax struct {
	Depth int
}

func (e Expectiminimax) Choose(ctx context.Context, g *track.Graph, pos rules.Position, side rules.Side, roll int) (rules.Move, bool) {
	depth := e.Depth
	if depth <= 0 {
		depth = defaultDepth
	}
	moves := rules.Moves(g, pos, side, roll)
	if len(moves) == 0 {
		return rules.Move{}, false
	}
	s := search{g: g, root: side}
	best, bestVal := moves[0], math.Inf(-1)
	for _, m := range moves {
		next, _ := rules.Apply(g, pos, m)
		v := s.chance(ctx, next, nextMover(side, roll), depth-1)
		if v > bestVal {
			best, bestVal = m, v
		}
	}
	return best, true
}

type search struct {
	g    *track.Graph
	root rules.Side
}

func nextMover(side rules.Side, roll int) rules.Side {
	if rules.ExtraTurn(roll) {
		return side
	}
	return side.Opponent()
}

func (s search) chance(ctx context.Context, pos rules.Position, toMove rules.Side, depth int) float64 {
	if _, over := pos.Winner(); over || depth <= 0 || ctx.Err() != nil {
		return Evaluate(s.g, pos, s.root)
	}
	total := 0.0
	for _, c := range rules.Chances {
		total += c.P * s.choice(ctx, pos, toMove, c.Roll, depth)
	}
	return total
}

func (s search) choice(ctx context.Context, pos rules.Position, toMove rules.Side, roll, depth int) float64 {
	moves := rules.Moves(s.g, pos, toMove, roll)
	if len(moves) == 0 {
		return s.chance(ctx, pos, nextMover(toMove, roll), depth-1)
	}
	maximize := toMove == s.root
	best := math.Inf(1)
	if maximize {
		best = math.Inf(-1)
	}
	for _, m := range moves {
		next, _ := rules.Apply(s.g, pos, m)
		v := s.chance(ctx, next, nextMover(toMove, roll), depth-1)
		if maximize && v > best || !maximize && v < best {
			best = v
		}
	}
	return best
}

// Evaluate scores pos for side: material dominates, progress along the
// circuit breaks ties.
func Evaluate(g *track.Graph, pos rules.Position, side rules.Side) float64 {
	if w, over := pos.Winner(); over {
		if w == side {
			return winScore
		}
		return -winScore
	}
	material := pos.Count(side) - pos.Count(side.Opponent())
	return float64(pieceWeight*material) + progress(g, pos, side) - progress(g, pos, side.Opponent())
}

func progress(g *track.Graph, pos rules.Position, side rules.Side) float64 {
	total := 0.0
	for _, c := range pos.Cells(side) {
		total += float64(rules.HomeRow - rules.Relative(g, side, c).Row)
	}
	return total
}
