// internal/server/session.go
//
// Server-side game session in flat-array form.
// Responsibilities:
//   - Piece/dice/step types as stored and pushed to clients.
//   - Mapping between flat cell indexes and board coordinates.
//   - Adapting the flat array to the shared rules package.
//
// Index convention: index i sits on row 3 - i/size; columns run left to
// right on rows 1 and 3 and are mirrored on rows 0 and 2, so Blue's
// indexes count distance along its circuit.
package server

import (
	"sync"
	"time"

	"github.com/robalobadob/tab/internal/rules"
	"github.com/robalobadob/tab/internal/track"
)

// Color names a player's pieces.
type Color string

const (
	Blue Color = "Blue" // first joiner, starts on row 3
	Red  Color = "Red"
)

func (c Color) side() rules.Side {
	if c == Blue {
		return rules.SideA
	}
	return rules.SideB
}

// Step is the two-phase move commit: pick a piece, then a destination.
type Step string

const (
	StepFrom Step = "from"
	StepTo   Step = "to"
)

// Status is a session's lifecycle stage.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Piece is one token in the flat array.
type Piece struct {
	Color          Color       `json:"color"`
	State          rules.State `json:"state"`
	InMotion       bool        `json:"inMotion"`
	ReachedLastRow bool        `json:"reachedLastRow"`
}

func newPiece(c Color, st rules.State) *Piece {
	return &Piece{
		Color:          c,
		State:          st,
		InMotion:       st != rules.NotMoved,
		ReachedLastRow: st == rules.LastRow,
	}
}

// Dice is the active throw.
type Dice struct {
	StickValues rules.Sticks `json:"stickValues"`
	Value       int          `json:"value"`
	KeepPlaying bool         `json:"keepPlaying"`
	Consumed    bool         `json:"consumed"` // played or skipped; only a new roll is allowed
}

// Session is one networked game. Fields are guarded by mu.
type Session struct {
	mu sync.Mutex

	ID           string    `json:"id"`
	Group        string    `json:"group"`
	Size         int       `json:"size"`
	Players      [2]string `json:"players"` // Blue, Red
	Initial      string    `json:"initial"`
	Turn         string    `json:"turn"`
	Step         Step      `json:"step"`
	Pieces       []*Piece  `json:"pieces"`
	Dice         *Dice     `json:"dice"`
	MustPass     string    `json:"mustPass"`
	Selected     int       `json:"selected"` // -1 when step is from
	Winner       string    `json:"winner"`
	Status       Status    `json:"status"`
	LastMoveTime time.Time `json:"lastMoveTime"`

	graph *track.Graph
}

func newSession(id, group, nick string, size int, now time.Time) *Session {
	return &Session{
		ID:           id,
		Group:        group,
		Size:         size,
		Players:      [2]string{nick, ""},
		Step:         StepFrom,
		Selected:     -1,
		Status:       StatusWaiting,
		LastMoveTime: now,
	}
}

// start pairs the second player and lays out both colors.
func (s *Session) start(nick string, now time.Time) {
	s.Players[1] = nick
	s.Pieces = make([]*Piece, track.Rows*s.Size)
	for i := 0; i < s.Size; i++ {
		s.Pieces[i] = newPiece(Blue, rules.NotMoved)
		s.Pieces[len(s.Pieces)-1-i] = newPiece(Red, rules.NotMoved)
	}
	s.Initial = s.Players[0]
	s.Turn = s.Players[0]
	s.Step = StepFrom
	s.Selected = -1
	s.Status = StatusPlaying
	s.LastMoveTime = now
}

// unstart puts a session back in the waiting state start moved it out of.
func (s *Session) unstart(since time.Time) {
	s.Players[1] = ""
	s.Pieces = nil
	s.Initial, s.Turn = "", ""
	s.Step, s.Selected = StepFrom, -1
	s.Status = StatusWaiting
	s.LastMoveTime = since
}

func (s *Session) board() *track.Graph {
	if s.graph == nil || s.graph.Cols() != s.Size {
		s.graph = track.New(s.Size)
	}
	return s.graph
}

// colorOf returns the nick's color; ok is false for outsiders.
func (s *Session) colorOf(nick string) (Color, bool) {
	switch {
	case nick == "":
		return "", false
	case s.Players[0] == nick:
		return Blue, true
	case s.Players[1] == nick:
		return Red, true
	}
	return "", false
}

func (s *Session) opponent(nick string) string {
	if s.Players[0] == nick {
		return s.Players[1]
	}
	return s.Players[0]
}

// CellOf maps a flat index to a board coordinate.
func CellOf(size, i int) track.Cell {
	row := track.Rows - 1 - i/size
	off := i % size
	if row == 0 || row == 2 {
		return track.Cell{Row: row, Col: size - 1 - off}
	}
	return track.Cell{Row: row, Col: off}
}

// IndexOf is the inverse of CellOf.
func IndexOf(size int, c track.Cell) int {
	off := c.Col
	if c.Row == 0 || c.Row == 2 {
		off = size - 1 - c.Col
	}
	return (track.Rows-1-c.Row)*size + off
}

// Position converts the flat array into a rules position.
func (s *Session) Position() rules.Position {
	p := rules.NewPosition(s.Size)
	for i, pc := range s.Pieces {
		if pc != nil {
			p.Put(CellOf(s.Size, i), pc.Color.side(), pc.State)
		}
	}
	return p
}

// destinations lists legal target indexes for the piece at index i.
func (s *Session) destinations(i, roll int) []int {
	cells := rules.Destinations(s.board(), s.Position(), CellOf(s.Size, i), roll)
	out := make([]int, 0, len(cells))
	for _, c := range cells {
		out = append(out, IndexOf(s.Size, c))
	}
	return out
}

func (s *Session) hasMoves(c Color, roll int) bool {
	return rules.HasMoves(s.board(), s.Position(), c.side(), roll)
}

func (s *Session) count(c Color) int {
	n := 0
	for _, pc := range s.Pieces {
		if pc != nil && pc.Color == c {
			n++
		}
	}
	return n
}

// snapshot is the initial push a new listener receives.
func (s *Session) snapshot() Update {
	u := Update{
		"pieces":  s.Pieces,
		"initial": s.Initial,
		"step":    s.Step,
		"turn":    s.Turn,
		"players": map[string]Color{s.Players[0]: Blue, s.Players[1]: Red},
		"dice":    s.Dice,
	}
	if s.MustPass != "" {
		u["mustPass"] = s.MustPass
	}
	return u
}

// Update is one push message; keys are a subset of pieces, initial, step,
// turn, players, dice, cell, selected, mustPass, winner and error.
type Update map[string]any
