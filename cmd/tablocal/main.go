// cmd/tablocal is an offline Tâb table: one human against the computer,
// or two computer policies against each other.
//
//	tablocal -size 9 -cpu greedy          # you play side A
//	tablocal -watch -cpu minimax -cpu2 lua
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tab/internal/config"
	"github.com/robalobadob/tab/internal/cpu"
	"github.com/robalobadob/tab/internal/game"
	"github.com/robalobadob/tab/internal/rules"
	"github.com/robalobadob/tab/internal/track"
)

var errQuit = errors.New("quit")

type options struct {
	size     int
	watch    bool
	policies [2]string
	depth    int
	script   string
	delay    time.Duration
	seed     int64
	maxTurns int
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	var o options
	flag.IntVar(&o.size, "size", 9, "columns per row (odd)")
	flag.BoolVar(&o.watch, "watch", false, "computer plays both sides")
	flag.StringVar(&o.policies[1], "cpu", cfg.CPUPolicy, "policy for side B: random|greedy|minimax|lua")
	flag.StringVar(&o.policies[0], "cpu2", cfg.CPUPolicy, "policy for side A when watching")
	flag.IntVar(&o.depth, "depth", cfg.CPUDepth, "search depth for minimax")
	flag.StringVar(&o.script, "script", cfg.CPUScript, "Lua scoring script for the lua policy")
	flag.DurationVar(&o.delay, "delay", 400*time.Millisecond, "pause before each computer turn")
	flag.Int64Var(&o.seed, "seed", time.Now().UnixNano(), "random seed")
	flag.IntVar(&o.maxTurns, "max-turns", 2000, "declare a draw after this many turns")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, o, os.Stdin, os.Stdout); err != nil && !errors.Is(err, errQuit) && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("tablocal")
	}
}

func run(ctx context.Context, o options, in io.Reader, out io.Writer) error {
	rng := rand.New(rand.NewSource(o.seed))
	var script string
	if o.script != "" {
		b, err := os.ReadFile(o.script)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		script = string(b)
	}

	var strategies [2]cpu.Strategy
	for i, name := range o.policies {
		if i == 0 && !o.watch {
			continue
		}
		s, err := cpu.ByName(cpu.Options{Name: name, Depth: o.depth, Script: script, Rand: rng})
		if err != nil {
			return err
		}
		strategies[i] = s
	}

	names := [2]string{"You", "CPU (" + o.policies[1] + ")"}
	if o.watch {
		names[0] = "CPU A (" + o.policies[0] + ")"
		names[1] = "CPU B (" + o.policies[1] + ")"
	}
	g, err := game.New(o.size, game.Options{Names: names, Human: [2]bool{!o.watch, false}, Rand: rng})
	if err != nil {
		return err
	}

	t := &table{g: g, sel: game.NewSelection(g), sched: game.NewScheduler(), in: bufio.NewScanner(in), out: out}
	for turn := 0; !g.Over(); turn++ {
		if turn >= o.maxTurns {
			fmt.Fprintf(out, "No winner after %d turns: draw.\n", o.maxTurns)
			return nil
		}
		pl := g.Current()
		if pl.Human {
			if err := t.humanStep(); err != nil {
				return err
			}
			continue
		}
		t.render()
		if err := t.cpuTurn(ctx, strategies[pl.Side], o.delay); err != nil {
			return err
		}
	}
	t.render()
	fmt.Fprintf(out, "%s wins!\n", g.Winner().Name)
	return nil
}

type table struct {
	g     *game.Game
	sel   *game.Selection
	sched *game.Scheduler
	in    *bufio.Scanner
	out   io.Writer
}

// cpuTurn plays one whole computer turn after a pause.
func (t *table) cpuTurn(ctx context.Context, s cpu.Strategy, delay time.Duration) error {
	if !t.sched.TryBegin() {
		return nil
	}
	name := t.g.Current().Name
	var turnErr error
	t.sched.After(delay, func() {
		throws, err := t.g.PlayTurn(ctx, s)
		for _, th := range throws {
			fmt.Fprintf(t.out, "%s throws %s = %d", name, sticks(th.Sticks), th.Value)
			if th.Skipped {
				fmt.Fprint(t.out, " (no move)")
			}
			fmt.Fprintln(t.out)
		}
		turnErr = err
	})
	if err := t.sched.Run(ctx); err != nil {
		return err
	}
	log.Debug().Str("player", name).Msg("cpu turn done")
	return turnErr
}

// humanStep advances the human through one phase of the turn.
func (t *table) humanStep() error {
	switch t.g.Phase() {
	case game.AwaitingPass:
		fmt.Fprint(t.out, "Turn over. Press enter to pass. ")
		if _, err := t.readLine(); err != nil {
			return err
		}
		t.g.Pass()
		return nil

	case game.RolledWithMoves:
		return t.chooseMove()
	}

	t.render()
	fmt.Fprint(t.out, "Press enter to throw the sticks (q to quit). ")
	if _, err := t.readLine(); err != nil {
		return err
	}
	th, err := t.g.ThrowSticks()
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "You throw %s = %d\n", sticks(th.Sticks), th.Value)
	if th.Skipped {
		fmt.Fprintln(t.out, "No legal move.")
	}
	return nil
}

type option struct {
	piece *game.Piece
	to    track.Cell
}

func (t *table) chooseMove() error {
	var opts []option
	for _, p := range t.g.Current().Pieces {
		for _, c := range t.g.PossibleMoves(p, t.g.StickValue()) {
			opts = append(opts, option{p, c})
		}
	}
	t.render()
	for i, o := range opts {
		fmt.Fprintf(t.out, "  %d) %s -> %s\n", i+1, cellName(o.piece.Cell()), cellName(o.to))
	}
	for {
		fmt.Fprint(t.out, "Move: ")
		line, err := t.readLine()
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(opts) {
			fmt.Fprintf(t.out, "Pick 1-%d.\n", len(opts))
			continue
		}
		o := opts[n-1]
		if t.sel.Select(o.piece) != nil && t.sel.MoveTo(o.to) {
			return nil
		}
		fmt.Fprintln(t.out, "That move is not legal.")
	}
}

func (t *table) readLine() (string, error) {
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	line := strings.TrimSpace(t.in.Text())
	if line == "q" {
		return "", errQuit
	}
	return line, nil
}

// render prints the board with row 0 on top. Lower-case pieces have not
// moved yet; a trailing ' marks a piece that reached its last row.
func (t *table) render() {
	pos := t.g.Position()
	var b strings.Builder
	b.WriteString("   ")
	for c := 0; c < pos.Size(); c++ {
		fmt.Fprintf(&b, " %-2d", c)
	}
	b.WriteByte('\n')
	for r := 0; r < track.Rows; r++ {
		fmt.Fprintf(&b, " %d ", r)
		for c := 0; c < pos.Size(); c++ {
			sq := pos.At(track.Cell{Row: r, Col: c})
			switch {
			case !sq.Occupied:
				b.WriteString(" . ")
			default:
				mark := sq.Side.String()
				if sq.State == rules.NotMoved {
					mark = strings.ToLower(mark)
				}
				tail := " "
				if sq.State == rules.LastRow {
					tail = "'"
				}
				b.WriteString(" " + mark + tail)
			}
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "To move: %s\n", t.g.Current().Name)
	fmt.Fprint(t.out, b.String())
}

func sticks(s rules.Sticks) string {
	var b strings.Builder
	for _, flat := range s {
		if flat {
			b.WriteByte('|')
		} else {
			b.WriteByte('o')
		}
	}
	return b.String()
}

func cellName(c track.Cell) string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }
