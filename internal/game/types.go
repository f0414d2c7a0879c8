// internal/game/types.go
//
// Core type definitions for the local Tâb engine.
// Defines:
//   - Piece: one token with its position and progress state.
//   - Player: an ordered set of pieces plus identity and start row.
//   - Phase: the turn state machine's states.

package game

import (
	"github.com/robalobadob/tab/internal/rules"
	"github.com/robalobadob/tab/internal/track"
)

// Piece is a single token on the board.
type Piece struct {
	Row   int
	Col   int
	State rules.State
	owner *Player
}

// Cell returns the piece's coordinate.
func (p *Piece) Cell() track.Cell { return track.Cell{Row: p.Row, Col: p.Col} }

// Owner returns the player holding this piece.
func (p *Piece) Owner() *Player { return p.owner }

// HasBeenInLastRow stays true for life once the last row was reached.
func (p *Piece) HasBeenInLastRow() bool { return p.State == rules.LastRow }

// Player owns pieces; order only matters for enumeration.
type Player struct {
	Name   string
	Side   rules.Side
	Human  bool
	Pieces []*Piece
}

// StartRow is the absolute row the player's pieces start on.
func (p *Player) StartRow() int { return p.Side.StartRow() }

// Lost reports whether every piece has been captured.
func (p *Player) Lost() bool { return len(p.Pieces) == 0 }

// PieceAt returns the player's piece at c, or nil.
func (p *Player) PieceAt(c track.Cell) *Piece {
	for _, pc := range p.Pieces {
		if pc.Row == c.Row && pc.Col == c.Col {
			return pc
		}
	}
	return nil
}

func (p *Player) remove(target *Piece) bool {
	for i, pc := range p.Pieces {
		if pc == target {
			p.Pieces = append(p.Pieces[:i], p.Pieces[i+1:]...)
			target.owner = nil
			return true
		}
	}
	return false
}

// Phase is where the turn state machine currently sits.
type Phase int

const (
	AwaitingRoll    Phase = iota
	RolledWithMoves       // a roll is active and at least one move exists
	AwaitingPass          // a human finished a non-bonus move
	GameOver
)

func (p Phase) String() string {
	switch p {
	case AwaitingRoll:
		return "awaiting-roll"
	case RolledWithMoves:
		return "rolled"
	case AwaitingPass:
		return "awaiting-pass"
	case GameOver:
		return "game-over"
	}
	return "unknown"
}

// Throw is the outcome of ThrowSticks.
type Throw struct {
	Sticks  rules.Sticks
	Value   int
	Skipped bool // no legal move existed; the turn was skipped
}
