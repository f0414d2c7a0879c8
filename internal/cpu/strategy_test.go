package cpu

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/tab/internal/rules"
	"github.com/robalobadob/tab/internal/track"
)

func cell(r, c int) track.Cell { return track.Cell{Row: r, Col: c} }

// capturePosition gives SideA a choice between a capture and a quiet move.
func capturePosition() (*track.Graph, rules.Position) {
	g := track.New(5)
	p := rules.NewPosition(5)
	p.Put(cell(2, 4), rules.SideA, rules.Moved)
	p.Put(cell(1, 0), rules.SideA, rules.Moved)
	p.Put(cell(2, 2), rules.SideB, rules.Moved)
	p.Put(cell(0, 0), rules.SideB, rules.Moved)
	return g, p
}

func policies(t *testing.T) map[string]Strategy {
	t.Helper()
	out := map[string]Strategy{}
	for _, name := range []string{"random", "greedy", "minimax", "lua"} {
		s, err := ByName(Options{Name: name, Depth: 2, Rand: rand.New(rand.NewSource(1))})
		require.NoError(t, err, name)
		out[name] = s
	}
	return out
}

func TestPoliciesReturnLegalMoves(t *testing.T) {
	g, p := capturePosition()
	for name, s := range policies(t) {
		for _, roll := range rules.Rolls {
			m, ok := s.Choose(context.Background(), g, p, rules.SideA, roll)
			if !rules.HasMoves(g, p, rules.SideA, roll) {
				assert.False(t, ok, "%s roll=%d", name, roll)
				continue
			}
			require.True(t, ok, "%s roll=%d", name, roll)
			assert.True(t, rules.Legal(g, p, m, roll), "%s roll=%d move=%+v", name, roll, m)
		}
	}
}

func TestNoMovesSkips(t *testing.T) {
	g := track.New(5)
	p := rules.Initial(5)
	for name, s := range policies(t) {
		_, ok := s.Choose(context.Background(), g, p, rules.SideA, 2)
		assert.False(t, ok, name)
	}
}

func TestHeuristicsPreferCapture(t *testing.T) {
	g, p := capturePosition()
	want := rules.Move{From: cell(2, 4), To: cell(2, 2)}
	for _, name := range []string{"greedy", "lua", "minimax"} {
		s := policies(t)[name]
		m, ok := s.Choose(context.Background(), g, p, rules.SideA, 2)
		require.True(t, ok, name)
		assert.Equal(t, want, m, name)
	}
}

func TestGreedyPrefersNeverMoved(t *testing.T) {
	g := track.New(5)
	p := rules.NewPosition(5)
	p.Put(cell(3, 4), rules.SideA, rules.NotMoved)
	p.Put(cell(2, 0), rules.SideA, rules.Moved)
	p.Put(cell(0, 2), rules.SideB, rules.NotMoved)

	m, ok := Greedy{Rand: rand.New(rand.NewSource(3))}.Choose(context.Background(), g, p, rules.SideA, 1)
	require.True(t, ok)
	assert.Equal(t, rules.Move{From: cell(3, 4), To: cell(2, 4)}, m)
}

func TestRandomCoversAllMoves(t *testing.T) {
	g, p := capturePosition()
	all := rules.Moves(g, p, rules.SideA, 2)
	require.Len(t, all, 2)
	seen := map[rules.Move]bool{}
	r := Random{Rand: rand.New(rand.NewSource(9))}
	for i := 0; i < 200; i++ {
		m, ok := r.Choose(context.Background(), g, p, rules.SideA, 2)
		require.True(t, ok)
		seen[m] = true
	}
	assert.Len(t, seen, len(all))
}

func TestMinimaxDoesNotMutateInput(t *testing.T) {
	g, p := capturePosition()
	before := p.Clone()
	_, _ = Expectiminimax{Depth: 3}.Choose(context.Background(), g, p, rules.SideA, 2)
	assert.True(t, before.Equal(p))
}

func TestEvaluate(t *testing.T) {
	g, p := capturePosition()
	assert.InDelta(t, 0, Evaluate(g, p, rules.SideA)+Evaluate(g, p, rules.SideB), 1e-9)

	won := rules.NewPosition(5)
	won.Put(cell(1, 1), rules.SideA, rules.Moved)
	assert.Equal(t, winScore, Evaluate(g, won, rules.SideA))
	assert.Equal(t, -winScore, Evaluate(g, won, rules.SideB))
}

func TestScriptValidation(t *testing.T) {
	_, err := NewScripted("x = 1", nil)
	assert.ErrorIs(t, err, errNoScore)

	_, err = NewScripted("function (", nil)
	assert.Error(t, err)

	_, err = ByName(Options{Name: "telepathy"})
	assert.Error(t, err)
}

func TestScriptOverridesPreference(t *testing.T) {
	g, p := capturePosition()
	// Prefer the quiet move on row 1 over the capture.
	s, err := NewScripted(`function score(m) if m.capture then return 0 end return 1 end`, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	m, ok := s.Choose(context.Background(), g, p, rules.SideA, 2)
	require.True(t, ok)
	assert.Equal(t, rules.Move{From: cell(1, 0), To: cell(1, 2)}, m)
}

func TestZeroValuePoliciesChoose(t *testing.T) {
	g, p := capturePosition()
	for name, s := range map[string]Strategy{"random": Random{}, "greedy": Greedy{}} {
		m, ok := s.Choose(context.Background(), g, p, rules.SideA, 2)
		require.True(t, ok, name)
		assert.Contains(t, rules.Moves(g, p, rules.SideA, 2), m, name)
	}
}
