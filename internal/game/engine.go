// internal/game/engine.go
//
// Turn and dice state machine for a single local Tâb game.
// Responsibilities:
//   - Create games with both start rows filled.
//   - Throw sticks, skip turns without legal moves, grant extra turns.
//   - Validate and apply moves, including captures.
//   - Track state transitions: awaiting-roll → rolled → (awaiting-pass) → game-over.
//
// Notes:
//   - Legality comes from the rules package; this file only owns objects
//     and sequencing.
//   - Query and attempt operations never panic: illegal input yields an
//     empty slice, false or an error.
package game

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/robalobadob/tab/internal/rules"
	"github.com/robalobadob/tab/internal/track"
)

var (
	ErrInvalidSize   = errors.New("board size must be positive")
	ErrGameOver      = errors.New("game is over")
	ErrAlreadyRolled = errors.New("sticks already thrown this turn")
	ErrMustPass      = errors.New("turn must be passed first")
)

// Options configure New.
type Options struct {
	Names [2]string
	Human [2]bool
	First rules.Side
	Rand  rules.Rand // defaults to a time-seeded source
}

// Game holds the state of one local game.
type Game struct {
	graph   *track.Graph
	size    int
	players [2]*Player
	current int
	phase   Phase
	rng     rules.Rand

	stickValue     int // 0 when no roll is active
	lastStickValue int
	sticks         rules.Sticks

	over   bool
	winner *Player
}

// New constructs a game on a 4×size board.
func New(size int, opts Options) (*Game, error) {
	if size < 1 {
		return nil, ErrInvalidSize
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g := &Game{graph: track.New(size), size: size, rng: rng, current: int(opts.First)}
	for i, side := range []rules.Side{rules.SideA, rules.SideB} {
		name := opts.Names[i]
		if name == "" {
			name = "Player " + side.String()
		}
		pl := &Player{Name: name, Side: side, Human: opts.Human[i]}
		for c := 0; c < size; c++ {
			pl.Pieces = append(pl.Pieces, &Piece{Row: side.StartRow(), Col: c, State: rules.NotMoved, owner: pl})
		}
		g.players[i] = pl
	}
	return g, nil
}

// Size returns the board width.
func (g *Game) Size() int { return g.size }

// Graph returns the immutable track graph.
func (g *Game) Graph() *track.Graph { return g.graph }

// Players returns both players, SideA first.
func (g *Game) Players() [2]*Player { return g.players }

// Current returns the player to act.
func (g *Game) Current() *Player { return g.players[g.current] }

// Opponent returns the player not to act.
func (g *Game) Opponent() *Player { return g.players[1-g.current] }

// Phase reports the state machine's state.
func (g *Game) Phase() Phase { return g.phase }

// StickValue is the active roll, 0 if none.
func (g *Game) StickValue() int { return g.stickValue }

// LastStickValue is the most recent roll, kept after it is consumed.
func (g *Game) LastStickValue() int { return g.lastStickValue }

// Sticks returns the faces of the most recent throw.
func (g *Game) Sticks() rules.Sticks { return g.sticks }

// WaitingForPass reports whether a human must acknowledge the end of turn.
func (g *Game) WaitingForPass() bool { return g.phase == AwaitingPass }

// PlayAgain reports whether the last roll grants another throw.
func (g *Game) PlayAgain() bool { return rules.ExtraTurn(g.lastStickValue) }

// Position snapshots the pieces into a rules position.
func (g *Game) Position() rules.Position {
	p := rules.NewPosition(g.size)
	for _, pl := range g.players {
		for _, pc := range pl.Pieces {
			p.Put(pc.Cell(), pl.Side, pc.State)
		}
	}
	return p
}

// PieceAt returns whichever piece sits on c, or nil.
func (g *Game) PieceAt(c track.Cell) *Piece {
	for _, pl := range g.players {
		if pc := pl.PieceAt(c); pc != nil {
			return pc
		}
	}
	return nil
}

// PossibleMoves lists legal destinations for piece with the given roll.
func (g *Game) PossibleMoves(piece *Piece, roll int) []track.Cell {
	if piece == nil || piece.owner == nil {
		return nil
	}
	return rules.Destinations(g.graph, g.Position(), piece.Cell(), roll)
}

// HasMoves reports whether the current player can move with roll.
func (g *Game) HasMoves(roll int) bool {
	return rules.HasMoves(g.graph, g.Position(), g.Current().Side, roll)
}

// ThrowSticks rolls for the current player. When no legal move exists the
// turn is skipped at once: a bonus roll keeps the player, any other roll
// passes the turn.
func (g *Game) ThrowSticks() (Throw, error) {
	switch g.phase {
	case GameOver:
		return Throw{}, ErrGameOver
	case RolledWithMoves:
		return Throw{}, ErrAlreadyRolled
	case AwaitingPass:
		return Throw{}, ErrMustPass
	}
	g.sticks = rules.Throw(g.rng)
	v := g.sticks.Value()
	g.stickValue, g.lastStickValue = v, v

	if !g.HasMoves(v) {
		g.stickValue = 0
		if !rules.ExtraTurn(v) {
			g.advance()
		}
		return Throw{Sticks: g.sticks, Value: v, Skipped: true}, nil
	}
	g.phase = RolledWithMoves
	return Throw{Sticks: g.sticks, Value: v}, nil
}

// Move plays piece to dest with the active roll. It returns false, leaving
// the game untouched, when the move is not legal right now.
func (g *Game) Move(piece *Piece, dest track.Cell) bool {
	if g.phase != RolledWithMoves || piece == nil || piece.owner != g.Current() {
		return false
	}
	legal := false
	for _, c := range g.PossibleMoves(piece, g.stickValue) {
		if c == dest {
			legal = true
			break
		}
	}
	if !legal {
		return false
	}

	if victim := g.Opponent().PieceAt(dest); victim != nil {
		g.Opponent().remove(victim)
		g.CheckGameOver()
	}
	piece.Row, piece.Col = dest.Row, dest.Col
	piece.State = rules.Advance(piece.State, rules.Relative(g.graph, piece.owner.Side, dest))
	g.stickValue = 0
	g.endTurn()
	return true
}

// Pass acknowledges the end of a human turn.
func (g *Game) Pass() bool {
	if g.phase != AwaitingPass {
		return false
	}
	g.advance()
	return true
}

// CheckGameOver settles the winner once a player has no pieces left.
// Repeated calls return the same result without side effects.
func (g *Game) CheckGameOver() (*Player, bool) {
	if g.over {
		return g.winner, true
	}
	for i, pl := range g.players {
		if pl.Lost() {
			g.over = true
			g.winner = g.players[1-i]
			g.phase = GameOver
			g.stickValue = 0
			return g.winner, true
		}
	}
	return nil, false
}

// Over reports whether the game has ended.
func (g *Game) Over() bool { return g.over }

// Winner returns the winning player once the game is over.
func (g *Game) Winner() *Player { return g.winner }

func (g *Game) endTurn() {
	if _, over := g.CheckGameOver(); over {
		return
	}
	switch {
	case g.PlayAgain():
		g.phase = AwaitingRoll
	case g.Current().Human:
		g.phase = AwaitingPass
	default:
		g.advance()
	}
}

func (g *Game) advance() {
	g.current = 1 - g.current
	g.stickValue = 0
	g.phase = AwaitingRoll
}

// Chooser picks a move for side; ok is false when it declines to move.
type Chooser interface {
	Choose(ctx context.Context, g *track.Graph, pos rules.Position, side rules.Side, roll int) (rules.Move, bool)
}

// PlayTurn drives the current player through one full turn with ch,
// including bonus throws, until the turn passes or the game ends.
func (g *Game) PlayTurn(ctx context.Context, ch Chooser) ([]Throw, error) {
	var throws []Throw
	mover := g.Current()
	for g.Current() == mover && !g.over {
		if err := ctx.Err(); err != nil {
			return throws, err
		}
		switch g.phase {
		case AwaitingPass:
			g.Pass()
			continue
		case RolledWithMoves:
		default:
			t, err := g.ThrowSticks()
			if err != nil {
				return throws, err
			}
			throws = append(throws, t)
			if t.Skipped {
				continue
			}
		}
		m, ok := ch.Choose(ctx, g.graph, g.Position(), mover.Side, g.stickValue)
		if !ok || !g.Move(mover.PieceAt(m.From), m.To) {
			// A chooser that fails to produce a legal move forfeits the roll.
			g.stickValue = 0
			g.advance()
		}
	}
	return throws, nil
}
