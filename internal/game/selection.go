package game

import "github.com/robalobadob/tab/internal/track"

// Selection is presentation state for a UI: the piece the user picked and
// the destinations it was offered. The engine never reads it.
type Selection struct {
	game  *Game
	piece *Piece
	moves []track.Cell
}

// NewSelection binds a selection to g.
func NewSelection(g *Game) *Selection { return &Selection{game: g} }

// Select picks a piece of the current player and caches its destinations
// for the active roll. Selecting a piece with no destinations clears.
func (s *Selection) Select(p *Piece) []track.Cell {
	s.Clear()
	if p == nil || p.Owner() != s.game.Current() || s.game.StickValue() == 0 {
		return nil
	}
	moves := s.game.PossibleMoves(p, s.game.StickValue())
	if len(moves) == 0 {
		return nil
	}
	s.piece, s.moves = p, moves
	return moves
}

// Piece returns the selected piece, or nil.
func (s *Selection) Piece() *Piece { return s.piece }

// Moves returns the cached destinations.
func (s *Selection) Moves() []track.Cell { return s.moves }

// MoveTo moves the selected piece to c. It returns false when nothing is
// selected or c was not offered.
func (s *Selection) MoveTo(c track.Cell) bool {
	if s.piece == nil {
		return false
	}
	for _, m := range s.moves {
		if m == c {
			ok := s.game.Move(s.piece, c)
			s.Clear()
			return ok
		}
	}
	return false
}

// Clear drops the selection.
func (s *Selection) Clear() {
	s.piece, s.moves = nil, nil
}
