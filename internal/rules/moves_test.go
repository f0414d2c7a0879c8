package rules

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/tab/internal/track"
)

func cell(r, c int) track.Cell { return track.Cell{Row: r, Col: c} }

func TestNotMovedOnlyMovesOnTab(t *testing.T) {
	for _, n := range []int{3, 5, 7, 9} {
		g := track.New(n)
		p := NewPosition(n)
		p.Put(cell(3, 0), SideA, NotMoved)
		p.Put(cell(0, 0), SideB, NotMoved)
		for _, roll := range Rolls {
			gotA := Destinations(g, p, cell(3, 0), roll)
			gotB := Destinations(g, p, cell(0, 0), roll)
			if roll == 1 {
				assert.NotEmpty(t, gotA, "n=%d", n)
				assert.NotEmpty(t, gotB, "n=%d", n)
				continue
			}
			assert.Empty(t, gotA, "n=%d roll=%d", n, roll)
			assert.Empty(t, gotB, "n=%d roll=%d", n, roll)
		}
	}
}

func TestFreshBoardTab(t *testing.T) {
	g := track.New(9)
	p := Initial(9)

	assert.Empty(t, Destinations(g, p, cell(3, 0), 1), "friendly piece blocks (3,1)")
	assert.Equal(t, []track.Cell{cell(2, 8)}, Destinations(g, p, cell(3, 8), 1))
	assert.Equal(t, []Move{{From: cell(3, 8), To: cell(2, 8)}}, Moves(g, p, SideA, 1))

	// SideB walks the rotated circuit: (0,0) is its home row end.
	assert.Equal(t, []Move{{From: cell(0, 0), To: cell(1, 0)}}, Moves(g, p, SideB, 1))
	assert.False(t, HasMoves(g, p, SideA, 2))
}

func TestCornerExposesBothBranches(t *testing.T) {
	g := track.New(9)
	p := NewPosition(9)
	p.Put(cell(1, 8), SideA, Moved)
	p.Put(cell(2, 0), SideB, Moved)

	got := Destinations(g, p, cell(1, 8), 1)
	assert.ElementsMatch(t, []track.Cell{cell(0, 8), cell(2, 8)}, got)
}

func TestStartRowNeverReentered(t *testing.T) {
	g := track.New(5)
	p := NewPosition(5)
	// SideA piece on row 2 can walk the row but never drop back to row 3.
	p.Put(cell(2, 1), SideA, Moved)
	p.Put(cell(0, 4), SideB, Moved)
	for _, roll := range Rolls {
		for _, to := range Destinations(g, p, cell(2, 1), roll) {
			assert.NotEqual(t, 3, to.Row)
		}
	}
}

func TestLastRowIsOneTime(t *testing.T) {
	g := track.New(5)
	p := NewPosition(5)
	p.Put(cell(1, 2), SideA, LastRow)
	p.Put(cell(3, 4), SideB, Moved)

	for _, roll := range Rolls {
		for _, to := range Destinations(g, p, cell(1, 2), roll) {
			assert.NotEqual(t, 0, to.Row, "roll=%d", roll)
		}
	}

	// Without the sticky flag the same roll reaches the last row.
	p.Put(cell(1, 2), SideA, Moved)
	assert.Contains(t, Destinations(g, p, cell(1, 2), 3), cell(0, 4))
}

func TestLastRowGatedByHomeRow(t *testing.T) {
	g := track.New(5)
	p := NewPosition(5)
	p.Put(cell(1, 3), SideA, Moved)
	p.Put(cell(3, 0), SideA, NotMoved)
	p.Put(cell(2, 2), SideB, Moved)

	assert.Equal(t, []track.Cell{cell(2, 4)}, Destinations(g, p, cell(1, 3), 2))

	p.Clear(cell(3, 0))
	assert.ElementsMatch(t, []track.Cell{cell(0, 4), cell(2, 4)}, Destinations(g, p, cell(1, 3), 2))
}

func TestJumpOverAndCapture(t *testing.T) {
	g := track.New(5)
	p := NewPosition(5)
	p.Put(cell(2, 4), SideA, Moved)
	p.Put(cell(2, 3), SideA, Moved)
	p.Put(cell(2, 2), SideB, Moved)
	p.Put(cell(2, 1), SideB, Moved)

	assert.Equal(t, []track.Cell{cell(2, 1)}, Destinations(g, p, cell(2, 4), 3))
	assert.Empty(t, Destinations(g, p, cell(2, 4), 1))

	next, captured := Apply(g, p, Move{From: cell(2, 4), To: cell(2, 1)})
	assert.True(t, captured)
	assert.Equal(t, 1, next.Count(SideB))
	assert.Equal(t, 2, next.Count(SideA))
	assert.Equal(t, 2, p.Count(SideB), "Apply must not touch its input")
}

func TestInvalidRollsAreEmpty(t *testing.T) {
	g := track.New(5)
	p := Initial(5)
	for _, roll := range []int{-1, 0, 5, 7} {
		assert.Empty(t, Destinations(g, p, cell(3, 4), roll))
	}
	assert.Empty(t, Destinations(g, p, cell(1, 1), 1), "empty cell")
	assert.Empty(t, Destinations(track.New(7), p, cell(3, 4), 1), "size mismatch")
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   track.Cell
		want State
	}{
		{"tab along home", NotMoved, cell(3, 2), FirstRow},
		{"leave home", FirstRow, cell(2, 4), Moved},
		{"reach goal", Moved, cell(0, 1), LastRow},
		{"sticky", LastRow, cell(1, 0), LastRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Advance(tt.from, tt.to))
		})
	}
}

func TestWinner(t *testing.T) {
	p := NewPosition(3)
	p.Put(cell(1, 1), SideA, Moved)
	w, ok := p.Winner()
	require.True(t, ok)
	assert.Equal(t, SideA, w)

	p.Put(cell(2, 2), SideB, Moved)
	_, ok = p.Winner()
	assert.False(t, ok)
}

func TestThrowDistribution(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	seen := map[int]int{}
	for i := 0; i < 20000; i++ {
		seen[Throw(r).Value()]++
	}
	for _, v := range Rolls {
		assert.Positive(t, seen[v], "roll %d", v)
	}
	assert.Zero(t, seen[0])
	assert.Zero(t, seen[5])
	assert.Len(t, seen, 5)
}

func TestExtraTurn(t *testing.T) {
	for _, v := range Rolls {
		assert.Equal(t, v == 1 || v == 4 || v == 6, ExtraTurn(v))
	}
	sum := 0.0
	for _, c := range Chances {
		sum += c.P
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestStateText(t *testing.T) {
	for st := NotMoved; st <= LastRow; st++ {
		b, err := st.MarshalText()
		require.NoError(t, err)
		var got State
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, st, got)
	}
	var s State
	assert.Error(t, s.UnmarshalText([]byte("flying")))
}
