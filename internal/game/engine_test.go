package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/tab/internal/rules"
	"github.com/robalobadob/tab/internal/track"
)

// scripted replays whole throws: each value expands to four stick draws.
type scripted struct {
	bits []int
}

func throws(values ...int) *scripted {
	s := &scripted{}
	for _, v := range values {
		up := v
		if v == 6 {
			up = 0
		}
		for i := 0; i < 4; i++ {
			if i < up {
				s.bits = append(s.bits, 1)
			} else {
				s.bits = append(s.bits, 0)
			}
		}
	}
	return s
}

func (s *scripted) Intn(int) int {
	if len(s.bits) == 0 {
		return 0
	}
	b := s.bits[0]
	s.bits = s.bits[1:]
	return b
}

func cell(r, c int) track.Cell { return track.Cell{Row: r, Col: c} }

func newGame(t *testing.T, size int, human bool, values ...int) *Game {
	t.Helper()
	g, err := New(size, Options{Human: [2]bool{human, human}, Rand: throws(values...)})
	require.NoError(t, err)
	return g
}

func TestNewLaysOutStartRows(t *testing.T) {
	g := newGame(t, 5, false)
	for _, pl := range g.Players() {
		require.Len(t, pl.Pieces, 5)
		for _, pc := range pl.Pieces {
			assert.Equal(t, pl.StartRow(), pc.Row)
			assert.Equal(t, rules.NotMoved, pc.State)
			assert.Same(t, pl, pc.Owner())
		}
	}
	assert.Equal(t, AwaitingRoll, g.Phase())
	assert.Equal(t, rules.SideA, g.Current().Side)

	_, err := New(0, Options{})
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestFreshTabKeepsTurn(t *testing.T) {
	g := newGame(t, 9, false, 1)
	th, err := g.ThrowSticks()
	require.NoError(t, err)
	assert.Equal(t, 1, th.Value)
	assert.False(t, th.Skipped)

	assert.Empty(t, g.PossibleMoves(g.PieceAt(cell(3, 0)), 1))
	corner := g.PieceAt(cell(3, 8))
	require.Equal(t, []track.Cell{cell(2, 8)}, g.PossibleMoves(corner, 1))

	require.True(t, g.Move(corner, cell(2, 8)))
	assert.Equal(t, rules.Moved, corner.State)
	assert.True(t, g.PlayAgain())
	assert.Equal(t, rules.SideA, g.Current().Side)
	assert.Equal(t, AwaitingRoll, g.Phase())
	assert.Zero(t, g.StickValue())
	assert.Equal(t, 1, g.LastStickValue())
}

func TestSkipWithoutMoves(t *testing.T) {
	g := newGame(t, 9, true, 2, 4)

	th, err := g.ThrowSticks()
	require.NoError(t, err)
	assert.True(t, th.Skipped)
	assert.Equal(t, rules.SideB, g.Current().Side, "roll 2 passes the turn")
	assert.False(t, g.WaitingForPass(), "skips never wait for a pass")

	th, err = g.ThrowSticks()
	require.NoError(t, err)
	assert.True(t, th.Skipped)
	assert.Equal(t, rules.SideB, g.Current().Side, "roll 4 keeps the turn")
	assert.Equal(t, AwaitingRoll, g.Phase())
}

func TestHumanWaitsForPass(t *testing.T) {
	g := newGame(t, 9, true, 1, 2)
	_, err := g.ThrowSticks()
	require.NoError(t, err)
	require.True(t, g.Move(g.PieceAt(cell(3, 8)), cell(2, 8)))

	_, err = g.ThrowSticks()
	require.NoError(t, err)
	require.True(t, g.Move(g.PieceAt(cell(2, 8)), cell(2, 6)))
	assert.True(t, g.WaitingForPass())
	assert.Equal(t, rules.SideA, g.Current().Side)

	_, err = g.ThrowSticks()
	assert.ErrorIs(t, err, ErrMustPass)

	require.True(t, g.Pass())
	assert.Equal(t, rules.SideB, g.Current().Side)
	assert.False(t, g.Pass())
}

func TestCPUAdvancesImmediately(t *testing.T) {
	g := newGame(t, 9, false, 1, 2)
	_, _ = g.ThrowSticks()
	require.True(t, g.Move(g.PieceAt(cell(3, 8)), cell(2, 8)))
	_, _ = g.ThrowSticks()
	require.True(t, g.Move(g.PieceAt(cell(2, 8)), cell(2, 6)))
	assert.False(t, g.WaitingForPass())
	assert.Equal(t, rules.SideB, g.Current().Side)
}

func TestIllegalMovesAreNoOps(t *testing.T) {
	g := newGame(t, 9, false, 1)
	corner := g.PieceAt(cell(3, 8))
	assert.False(t, g.Move(corner, cell(2, 8)), "before rolling")

	_, err := g.ThrowSticks()
	require.NoError(t, err)
	_, err = g.ThrowSticks()
	assert.ErrorIs(t, err, ErrAlreadyRolled)

	assert.False(t, g.Move(corner, cell(2, 7)))
	assert.False(t, g.Move(g.PieceAt(cell(0, 0)), cell(1, 0)), "opponent piece")
	assert.False(t, g.Move(nil, cell(2, 8)))
	assert.Equal(t, RolledWithMoves, g.Phase())
}

func TestCaptureEndsGame(t *testing.T) {
	g := newGame(t, 3, false, 1)
	a, b := g.players[0], g.players[1]
	a.Pieces = []*Piece{{Row: 2, Col: 2, State: rules.Moved, owner: a}}
	b.Pieces = []*Piece{{Row: 2, Col: 1, State: rules.Moved, owner: b}}

	_, err := g.ThrowSticks()
	require.NoError(t, err)
	require.True(t, g.Move(a.Pieces[0], cell(2, 1)))

	assert.Len(t, a.Pieces, 1)
	assert.Empty(t, b.Pieces)
	w, over := g.CheckGameOver()
	require.True(t, over)
	assert.Same(t, a, w)
	assert.Equal(t, GameOver, g.Phase())

	w2, over2 := g.CheckGameOver()
	assert.True(t, over2)
	assert.Same(t, w, w2)

	_, err = g.ThrowSticks()
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestLastRowOpensWhenHomeClears(t *testing.T) {
	g := newGame(t, 5, false, 2, 2)
	a := g.players[0]
	runner := &Piece{Row: 1, Col: 3, State: rules.Moved, owner: a}
	home := &Piece{Row: 3, Col: 0, State: rules.NotMoved, owner: a}
	a.Pieces = []*Piece{runner, home}

	assert.Equal(t, []track.Cell{cell(2, 4)}, g.PossibleMoves(runner, 2))
	a.remove(home)
	assert.ElementsMatch(t, []track.Cell{cell(0, 4), cell(2, 4)}, g.PossibleMoves(runner, 2))
}

func TestSelection(t *testing.T) {
	g := newGame(t, 9, false, 1)
	sel := NewSelection(g)
	assert.Nil(t, sel.Select(g.PieceAt(cell(3, 8))), "nothing rolled yet")

	_, err := g.ThrowSticks()
	require.NoError(t, err)
	assert.Nil(t, sel.Select(g.PieceAt(cell(3, 0))))
	assert.Nil(t, sel.Piece())

	got := sel.Select(g.PieceAt(cell(3, 8)))
	assert.Equal(t, []track.Cell{cell(2, 8)}, got)
	assert.False(t, sel.MoveTo(cell(1, 1)))
	assert.True(t, sel.MoveTo(cell(2, 8)))
	assert.Nil(t, sel.Piece())
	assert.False(t, sel.MoveTo(cell(2, 8)))
}

type firstMove struct{}

func (firstMove) Choose(_ context.Context, g *track.Graph, pos rules.Position, side rules.Side, roll int) (rules.Move, bool) {
	ms := rules.Moves(g, pos, side, roll)
	if len(ms) == 0 {
		return rules.Move{}, false
	}
	return ms[0], true
}

func TestPlayTurnFollowsBonusThrows(t *testing.T) {
	g := newGame(t, 9, false, 1, 3)
	got, err := g.PlayTurn(context.Background(), firstMove{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Value)
	assert.Equal(t, 3, got[1].Value)
	assert.Equal(t, rules.SideB, g.Current().Side)
	assert.NotNil(t, g.Players()[0].PieceAt(cell(2, 5)))
}

func TestSchedulerFIFO(t *testing.T) {
	s := NewScheduler()
	var waited []time.Duration
	s.wait = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}
	var order []string
	require.True(t, s.TryBegin())
	assert.False(t, s.TryBegin(), "re-entrant roll is ignored")

	s.After(10*time.Millisecond, func() {
		order = append(order, "flip")
		s.After(0, func() { order = append(order, "nested") })
	})
	s.After(5*time.Millisecond, func() { order = append(order, "move") })
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{"flip", "move", "nested"}, order)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 5 * time.Millisecond}, waited)
	assert.False(t, s.Busy())
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	ran := false
	s.After(time.Hour, func() { ran = true })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.False(t, ran)
	assert.False(t, s.Busy())
}
