// internal/cpu/strategy.go
//
// CPU move policies for the local engine.
// Responsibilities:
//   - Strategy interface shared by every policy (satisfies game.Chooser).
//   - Random and greedy heuristic policies.
//   - Lookup by name for configuration.
//
// Every policy works on rules.Position values and never mutates its input.
package cpu

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/robalobadob/tab/internal/rules"
	"github.com/robalobadob/tab/internal/track"
)

// Strategy picks one legal move; ok is false when side has none.
type Strategy interface {
	Choose(ctx context.Context, g *track.Graph, pos rules.Position, side rules.Side, roll int) (rules.Move, bool)
}

// Random picks uniformly among all legal moves.
type Random struct {
	Rand rules.Rand
}

func (r Random) Choose(_ context.Context, g *track.Graph, pos rules.Position, side rules.Side, roll int) (rules.Move, bool) {
	moves := rules.Moves(g, pos, side, roll)
	if len(moves) == 0 {
		return rules.Move{}, false
	}
	return moves[orSeeded(r.Rand).Intn(len(moves))], true
}

// features describes a candidate move for scoring.
type features struct {
	Capture     bool
	NotMoved    bool
	LeavesHome  bool
	ReachesLast bool
}

func describe(g *track.Graph, pos rules.Position, side rules.Side, m rules.Move) features {
	mover := pos.At(m.From)
	target := pos.At(m.To)
	from := rules.Relative(g, side, m.From)
	to := rules.Relative(g, side, m.To)
	return features{
		Capture:     target.Occupied && target.Side != side,
		NotMoved:    mover.State == rules.NotMoved,
		LeavesHome:  from.Row == rules.HomeRow && to.Row != rules.HomeRow,
		ReachesLast: to.Row == rules.GoalRow,
	}
}

// Greedy scores each move once: a capture first, then getting a
// never-moved piece going, with a small bonus for leaving the start row.
// Ties are broken at random.
type Greedy struct {
	Rand rules.Rand
}

func greedyScore(f features) float64 {
	s := 0.0
	if f.Capture {
		s += 100
	}
	if f.NotMoved {
		s += 50
	}
	if f.LeavesHome {
		s += 10
	}
	return s
}

func (gr Greedy) Choose(_ context.Context, g *track.Graph, pos rules.Position, side rules.Side, roll int) (rules.Move, bool) {
	moves := rules.Moves(g, pos, side, roll)
	scores := make([]float64, len(moves))
	for i, m := range moves {
		scores[i] = greedyScore(describe(g, pos, side, m))
	}
	return pickBest(moves, scores, orSeeded(gr.Rand))
}

// pickBest returns a uniformly random move among the top scores.
func pickBest(moves []rules.Move, scores []float64, rng rules.Rand) (rules.Move, bool) {
	if len(moves) == 0 {
		return rules.Move{}, false
	}
	var top []int
	for i, s := range scores {
		switch {
		case len(top) == 0 || s > scores[top[0]]:
			top = append(top[:0], i)
		case s == scores[top[0]]:
			top = append(top, i)
		}
	}
	return moves[top[rng.Intn(len(top))]], true
}

// orSeeded returns rng, or a time-seeded source when it is nil.
func orSeeded(rng rules.Rand) rules.Rand {
	if rng == nil {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return rng
}

// Options select and tune a policy by name.
type Options struct {
	Name   string // random | greedy | minimax | lua
	Depth  int
	Script string
	Rand   rules.Rand
}

// ByName builds the policy named in opts.
func ByName(opts Options) (Strategy, error) {
	rng := orSeeded(opts.Rand)
	switch strings.ToLower(opts.Name) {
	case "random":
		return Random{Rand: rng}, nil
	case "", "greedy":
		return Greedy{Rand: rng}, nil
	case "minimax", "expectiminimax":
		return Expectiminimax{Depth: opts.Depth}, nil
	case "lua":
		src := opts.Script
		if src == "" {
			src = DefaultScript
		}
		return NewScripted(src, rng)
	}
	return nil, fmt.Errorf("unknown cpu policy %q", opts.Name)
}
