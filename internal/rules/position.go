// internal/rules/position.go
//
// Side-effect free board position shared by the local engine, the CPU
// search and the authoritative server.
//
// Position is a value: Clone before mutating a copy you intend to keep.
// Coordinates are absolute; each Side sees the board through its own frame
// (see Relative / Absolute).
package rules

import (
	"fmt"

	"github.com/robalobadob/tab/internal/track"
)

// Side identifies one of the two players.
type Side int

const (
	SideA Side = iota // starts on row 3
	SideB             // starts on row 0
)

// Opponent returns the other side.
func (s Side) Opponent() Side { return 1 - s }

// StartRow is the absolute row the side's pieces start on.
func (s Side) StartRow() int {
	if s == SideA {
		return 3
	}
	return 0
}

// LastRow is the opponent's start row.
func (s Side) LastRow() int { return s.Opponent().StartRow() }

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// Rows in the mover's own frame.
const (
	GoalRow = 0
	HomeRow = track.Rows - 1
)

// State is a piece's progress tag.
type State uint8

const (
	NotMoved State = iota
	FirstRow       // moved, still on its own start row
	Moved
	LastRow // has reached the last row at least once; sticky
)

func (s State) String() string {
	switch s {
	case NotMoved:
		return "not-moved"
	case FirstRow:
		return "first-row"
	case Moved:
		return "moved"
	case LastRow:
		return "last-row"
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if s > LastRow {
		return nil, fmt.Errorf("invalid piece state %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for st := NotMoved; st <= LastRow; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("invalid piece state %q", b)
}

// Square is the content of one cell.
type Square struct {
	Occupied bool
	Side     Side
	State    State
}

// Position is a full board snapshot indexed by track cell id.
type Position struct {
	size  int
	cells []Square
}

// NewPosition returns an empty board of the given width.
func NewPosition(size int) Position {
	if size < 1 {
		size = 1
	}
	return Position{size: size, cells: make([]Square, track.Rows*size)}
}

// Initial fills both start rows with not-moved pieces.
func Initial(size int) Position {
	p := NewPosition(size)
	for c := 0; c < p.size; c++ {
		p.Put(track.Cell{Row: SideA.StartRow(), Col: c}, SideA, NotMoved)
		p.Put(track.Cell{Row: SideB.StartRow(), Col: c}, SideB, NotMoved)
	}
	return p
}

// Size returns the board width.
func (p Position) Size() int { return p.size }

func (p Position) index(c track.Cell) (int, bool) {
	if c.Row < 0 || c.Row >= track.Rows || c.Col < 0 || c.Col >= p.size {
		return 0, false
	}
	return c.Row*p.size + c.Col, true
}

// At returns the square at c; off-board cells read as empty.
func (p Position) At(c track.Cell) Square {
	i, ok := p.index(c)
	if !ok {
		return Square{}
	}
	return p.cells[i]
}

// Put places a piece at c, replacing whatever was there.
func (p Position) Put(c track.Cell, side Side, st State) {
	if i, ok := p.index(c); ok {
		p.cells[i] = Square{Occupied: true, Side: side, State: st}
	}
}

// Clear empties c.
func (p Position) Clear(c track.Cell) {
	if i, ok := p.index(c); ok {
		p.cells[i] = Square{}
	}
}

// Clone returns an independent copy.
func (p Position) Clone() Position {
	return Position{size: p.size, cells: append([]Square(nil), p.cells...)}
}

// Count returns how many pieces side still has.
func (p Position) Count(side Side) int {
	n := 0
	for _, sq := range p.cells {
		if sq.Occupied && sq.Side == side {
			n++
		}
	}
	return n
}

// OnRow reports whether side has any piece on the absolute row.
func (p Position) OnRow(side Side, row int) bool {
	for c := 0; c < p.size; c++ {
		sq := p.At(track.Cell{Row: row, Col: c})
		if sq.Occupied && sq.Side == side {
			return true
		}
	}
	return false
}

// Cells returns the cells occupied by side in id order.
func (p Position) Cells(side Side) []track.Cell {
	var out []track.Cell
	for i, sq := range p.cells {
		if sq.Occupied && sq.Side == side {
			out = append(out, track.Cell{Row: i / p.size, Col: i % p.size})
		}
	}
	return out
}

// Equal reports whether both positions hold the same pieces.
func (p Position) Equal(o Position) bool {
	if p.size != o.size || len(p.cells) != len(o.cells) {
		return false
	}
	for i := range p.cells {
		if p.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Winner returns the side that captured every enemy piece.
func (p Position) Winner() (Side, bool) {
	switch {
	case p.Count(SideA) == 0:
		return SideB, true
	case p.Count(SideB) == 0:
		return SideA, true
	}
	return 0, false
}
