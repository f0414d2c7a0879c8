package rules

import "github.com/robalobadob/tab/internal/track"

// Move is one legal (from, to) pair for the side to move.
type Move struct {
	From track.Cell `json:"from"`
	To   track.Cell `json:"to"`
}

// Relative maps an absolute cell into side's own frame, where the start
// row is HomeRow and the last row is GoalRow.
func Relative(g *track.Graph, side Side, c track.Cell) track.Cell {
	if side == SideA {
		return c
	}
	return g.Rotate(c)
}

// Absolute is the inverse of Relative.
func Absolute(g *track.Graph, side Side, c track.Cell) track.Cell {
	return Relative(g, side, c)
}

// Destinations lists the legal landing cells for the piece at from.
//
// A not-moved piece only moves on a Tâb (roll 1). Edges into the home row
// are followed only from the home row; a piece that has reached the last row
// never enters it again. Only the landing cell's occupant matters: friendly
// landings are illegal, enemy landings capture. The last row is closed while
// any friendly piece still sits on its start row.
func Destinations(g *track.Graph, p Position, from track.Cell, roll int) []track.Cell {
	sq := p.At(from)
	if !sq.Occupied || !ValidRoll(roll) || g.Cols() != p.Size() {
		return nil
	}
	if sq.State == NotMoved && roll != 1 {
		return nil
	}
	side := sq.Side
	allow := func(a, b int) bool {
		ca, cb := g.CellOf(a), g.CellOf(b)
		if cb.Row == HomeRow && ca.Row != HomeRow {
			return false
		}
		if cb.Row == GoalRow && sq.State == LastRow {
			return false
		}
		return true
	}
	start := g.ID(Relative(g, side, from))
	homeOccupied := p.OnRow(side, side.StartRow())

	var out []track.Cell
	for _, id := range g.KStepReachable(start, roll, allow) {
		rel := g.CellOf(id)
		abs := Absolute(g, side, rel)
		if t := p.At(abs); t.Occupied && t.Side == side {
			continue
		}
		if rel.Row == GoalRow && homeOccupied {
			continue
		}
		out = append(out, abs)
	}
	return out
}

// Moves lists every legal move for side, ordered by origin cell id.
func Moves(g *track.Graph, p Position, side Side, roll int) []Move {
	var out []Move
	for _, from := range p.Cells(side) {
		for _, to := range Destinations(g, p, from, roll) {
			out = append(out, Move{From: from, To: to})
		}
	}
	return out
}

// HasMoves reports whether side has at least one legal move.
func HasMoves(g *track.Graph, p Position, side Side, roll int) bool {
	for _, from := range p.Cells(side) {
		if len(Destinations(g, p, from, roll)) > 0 {
			return true
		}
	}
	return false
}

// Advance returns the state of a piece after landing on the relative cell to.
func Advance(st State, to track.Cell) State {
	switch {
	case st == LastRow, to.Row == GoalRow:
		return LastRow
	case to.Row == HomeRow:
		return FirstRow
	}
	return Moved
}

// Legal reports whether m is among the destinations of its origin.
func Legal(g *track.Graph, p Position, m Move, roll int) bool {
	for _, to := range Destinations(g, p, m.From, roll) {
		if to == m.To {
			return true
		}
	}
	return false
}

// Apply plays m on a copy of p without checking legality and reports
// whether an enemy piece was captured.
func Apply(g *track.Graph, p Position, m Move) (Position, bool) {
	next := p.Clone()
	mover := p.At(m.From)
	if !mover.Occupied {
		return next, false
	}
	target := p.At(m.To)
	captured := target.Occupied && target.Side != mover.Side
	next.Clear(m.From)
	next.Put(m.To, mover.Side, Advance(mover.State, Relative(g, mover.Side, m.To)))
	return next, captured
}
