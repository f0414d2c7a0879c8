package cpu

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/robalobadob/tab/internal/rules"
	"github.com/robalobadob/tab/internal/track"
)

// DefaultScript mirrors the greedy policy and also favours scoring runs.
const DefaultScript = `
function score(m)
  local s = 0
  if m.capture then s = s + 100 end
  if m.not_moved then s = s + 50 end
  if m.leaves_home then s = s + 10 end
  if m.reaches_last then s = s + 5 end
  return s
end
`

var errNoScore = errors.New("script must define a global function score(move)")

// Scripted scores moves with a Lua function `score(move)`. The move table
// carries from_row, from_col, to_row, to_col, roll and the booleans
// capture, not_moved, leaves_home and reaches_last. A script error falls
// back to the greedy score for that move.
type Scripted struct {
	src  string
	rand rules.Rand
}

// NewScripted checks that src loads and defines score.
func NewScripted(src string, rng rules.Rand) (*Scripted, error) {
	L := lua.NewState()
	defer L.Close()
	if err := load(L, src); err != nil {
		return nil, err
	}
	return &Scripted{src: src, rand: orSeeded(rng)}, nil
}

func load(L *lua.LState, src string) error {
	if err := L.DoString(src); err != nil {
		return fmt.Errorf("load cpu script: %w", err)
	}
	if L.GetGlobal("score").Type() != lua.LTFunction {
		return errNoScore
	}
	return nil
}

func (s *Scripted) Choose(ctx context.Context, g *track.Graph, pos rules.Position, side rules.Side, roll int) (rules.Move, bool) {
	moves := rules.Moves(g, pos, side, roll)
	if len(moves) == 0 {
		return rules.Move{}, false
	}
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	scripted := load(L, s.src) == nil
	scores := make([]float64, len(moves))
	for i, m := range moves {
		f := describe(g, pos, side, m)
		scores[i] = greedyScore(f)
		if !scripted {
			continue
		}
		if v, err := callScore(L, m, f, roll); err == nil {
			scores[i] = v
		}
	}
	return pickBest(moves, scores, s.rand)
}

func callScore(L *lua.LState, m rules.Move, f features, roll int) (float64, error) {
	t := L.NewTable()
	t.RawSetString("from_row", lua.LNumber(m.From.Row))
	t.RawSetString("from_col", lua.LNumber(m.From.Col))
	t.RawSetString("to_row", lua.LNumber(m.To.Row))
	t.RawSetString("to_col", lua.LNumber(m.To.Col))
	t.RawSetString("roll", lua.LNumber(roll))
	t.RawSetString("capture", lua.LBool(f.Capture))
	t.RawSetString("not_moved", lua.LBool(f.NotMoved))
	t.RawSetString("leaves_home", lua.LBool(f.LeavesHome))
	t.RawSetString("reaches_last", lua.LBool(f.ReachesLast))

	if err := L.CallByParam(lua.P{Fn: L.GetGlobal("score"), NRet: 1, Protect: true}, t); err != nil {
		return 0, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("score returned %s, want number", ret.Type())
	}
	return float64(n), nil
}
