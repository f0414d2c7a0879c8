// internal/server/manager.go
//
// Authoritative game state for networked play.
// Responsibilities:
//   - Pair players per (group, size) and allocate sessions.
//   - Revalidate every roll, move and pass against the shared rules.
//   - Persist each accepted mutation, then push a delta to listeners.
//   - Forfeit games on leave or inactivity.
//
// Locking: m.mu guards the session map and waiting pool and is always taken
// before a session's own mutex. Operations on different games only share
// m.mu for the lookup.
package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tab/internal/broadcast"
	"github.com/robalobadob/tab/internal/rules"
)

// DefaultTimeout is how long a player may stay idle before forfeiting.
const DefaultTimeout = 2 * time.Minute

// Result is a finished game as recorded in the ranking.
type Result struct {
	Group  string
	Size   int
	Winner string
	Loser  string
}

// RankEntry is one row of the ranking.
type RankEntry struct {
	Nick      string `json:"nick"`
	Victories int    `json:"victories"`
	Games     int    `json:"games"`
}

// Persister is the durable side of the manager.
type Persister interface {
	SaveSession(ctx context.Context, s *Session) error
	LoadSessions(ctx context.Context) ([]*Session, error)
	RecordResult(ctx context.Context, r Result) error
	Ranking(ctx context.Context, group string, size, limit int) ([]RankEntry, error)
}

// Options tune a Manager; zero values pick defaults.
type Options struct {
	Timeout time.Duration
	Rand    rules.Rand
	Now     func() time.Time
	NewID   func() string
}

type poolKey struct {
	group string
	size  int
}

// Manager owns every live session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	waiting  map[poolKey]string

	store Persister
	hub   *broadcast.Hub

	rngMu sync.Mutex
	rng   rules.Rand

	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// NewManager wires a manager to its store and broadcast hub.
func NewManager(st Persister, hub *broadcast.Hub, opts Options) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		waiting:  make(map[poolKey]string),
		store:    st,
		hub:      hub,
		rng:      opts.Rand,
		timeout:  opts.Timeout,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	return m
}

// Restore loads persisted sessions. A load failure leaves the manager empty.
func (m *Manager) Restore(ctx context.Context) {
	list, err := m.store.LoadSessions(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("load sessions, starting empty")
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range list {
		if s.Status == StatusFinished {
			continue
		}
		// Downtime does not count against the player to move.
		s.LastMoveTime = m.now()
		m.sessions[s.ID] = s
		if s.Status == StatusWaiting {
			m.waiting[poolKey{s.Group, s.Size}] = s.ID
		}
	}
	log.Info().Int("sessions", len(m.sessions)).Msg("sessions restored")
}

// Join pairs nick with a waiting player or opens a new waiting session.
func (m *Manager) Join(ctx context.Context, group, nick string, size int) (string, error) {
	if nick == "" {
		return "", ErrInvalidNick
	}
	if size <= 0 || size%2 == 0 {
		return "", ErrInvalidSize
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := poolKey{group, size}
	if id, ok := m.waiting[key]; ok {
		s := m.sessions[id]
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.Players[0] == nick {
			return id, nil
		}
		since := s.LastMoveTime
		s.start(nick, m.now())
		if err := m.persist(ctx, s); err != nil {
			// Still waiting: the pool entry stays valid for the next joiner.
			s.unstart(since)
			return "", err
		}
		delete(m.waiting, key)
		m.publish(s, s.snapshot())
		log.Info().Str("game", id).Str("blue", s.Players[0]).Str("red", nick).Msg("game started")
		return id, nil
	}

	s := newSession(m.newID(), group, nick, size, m.now())
	if err := m.persist(ctx, s); err != nil {
		return "", err
	}
	m.sessions[s.ID] = s
	m.waiting[key] = s.ID
	log.Info().Str("game", s.ID).Str("nick", nick).Int("size", size).Msg("waiting for opponent")
	return s.ID, nil
}

// lookup finds a session and locks it; the caller must unlock.
func (m *Manager) lookup(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrGameNotFound
	}
	s.mu.Lock()
	return s, nil
}

// playing checks that nick may act in s right now.
func playing(s *Session, nick string) (Color, error) {
	color, ok := s.colorOf(nick)
	switch {
	case !ok:
		return "", ErrNotInGame
	case s.Status == StatusFinished:
		return "", ErrGameOver
	case s.Status == StatusWaiting:
		return "", ErrNotStarted
	case s.Turn != nick:
		return "", ErrNotYourTurn
	}
	return color, nil
}

// Roll throws the sticks for the player to move.
func (m *Manager) Roll(ctx context.Context, id, nick string) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	color, err := playing(s, nick)
	if err != nil {
		return err
	}
	// A bonus throw may be rolled over; any other live throw must be used.
	if s.Dice != nil && !s.Dice.Consumed && !s.Dice.KeepPlaying {
		return ErrAlreadyRolled
	}

	m.rngMu.Lock()
	sticks := rules.Throw(m.rng)
	m.rngMu.Unlock()
	v := sticks.Value()
	s.Dice = &Dice{StickValues: sticks, Value: v, KeepPlaying: rules.ExtraTurn(v)}
	s.Step, s.Selected = StepFrom, -1
	s.LastMoveTime = m.now()

	u := Update{"turn": s.Turn, "step": s.Step}
	if !s.hasMoves(color, v) {
		if s.Dice.KeepPlaying {
			s.Dice.Consumed = true
		} else {
			s.MustPass = nick
			u["mustPass"] = nick
		}
	}
	u["dice"] = s.Dice
	if err := m.persist(ctx, s); err != nil {
		return err
	}
	m.publish(s, u)
	return nil
}

// Notify is one half of a move: the origin cell, then the destination.
// Picking the origin again as destination cancels the selection.
func (m *Manager) Notify(ctx context.Context, id, nick string, cell int) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	color, err := playing(s, nick)
	if err != nil {
		return err
	}
	if cell < 0 || cell >= len(s.Pieces) {
		return ErrInvalidCell
	}
	if s.Dice == nil || s.Dice.Consumed {
		return ErrRollFirst
	}
	if s.MustPass != "" {
		return ErrMustPass
	}

	if s.Step == StepFrom {
		return m.selectFrom(ctx, s, color, cell)
	}
	if cell == s.Selected {
		s.Step, s.Selected = StepFrom, -1
		if err := m.persist(ctx, s); err != nil {
			return err
		}
		m.publish(s, Update{"step": s.Step, "cell": cell, "selected": []int{}})
		return nil
	}
	return m.moveTo(ctx, s, nick, color, cell)
}

func (m *Manager) selectFrom(ctx context.Context, s *Session, color Color, cell int) error {
	pc := s.Pieces[cell]
	switch {
	case pc == nil:
		return ErrNoPiece
	case pc.Color != color:
		return ErrNotYourPiece
	case pc.State == rules.NotMoved && s.Dice.Value != 1:
		return ErrNeedsTab
	}
	dests := s.destinations(cell, s.Dice.Value)
	if len(dests) == 0 {
		return ErrPieceStuck
	}
	s.Step, s.Selected = StepTo, cell
	if err := m.persist(ctx, s); err != nil {
		return err
	}
	m.publish(s, Update{"step": s.Step, "cell": cell, "selected": append([]int{cell}, dests...)})
	return nil
}

func (m *Manager) moveTo(ctx context.Context, s *Session, nick string, color Color, cell int) error {
	from := s.Selected
	if from < 0 || from >= len(s.Pieces) || s.Pieces[from] == nil || s.Pieces[from].Color != color {
		// The selection no longer names a piece of ours; drop it everywhere.
		s.Step, s.Selected = StepFrom, -1
		if err := m.persist(ctx, s); err != nil {
			return err
		}
		m.publish(s, Update{"step": s.Step, "selected": []int{}})
		return ErrInvalidMove
	}
	legal := false
	for _, d := range s.destinations(from, s.Dice.Value) {
		if d == cell {
			legal = true
			break
		}
	}
	if !legal {
		return ErrInvalidMove
	}

	mover := s.Pieces[from]
	rel := rules.Relative(s.board(), color.side(), CellOf(s.Size, cell))
	s.Pieces[cell] = newPiece(color, rules.Advance(mover.State, rel))
	s.Pieces[from] = nil
	s.Step, s.Selected = StepFrom, -1
	s.LastMoveTime = m.now()

	opp := s.opponent(nick)
	if s.count(oppositeColor(color)) == 0 {
		return m.finish(ctx, s, nick, Update{"pieces": s.Pieces, "cell": cell})
	}
	if s.Dice.KeepPlaying {
		s.Dice.Consumed = true
	} else {
		s.Dice = nil
		s.Turn = opp
	}
	if err := m.persist(ctx, s); err != nil {
		return err
	}
	m.publish(s, Update{
		"pieces":   s.Pieces,
		"turn":     s.Turn,
		"step":     s.Step,
		"cell":     cell,
		"selected": []int{},
		"dice":     s.Dice,
	})
	return nil
}

func oppositeColor(c Color) Color {
	if c == Blue {
		return Red
	}
	return Blue
}

// Pass hands the turn over after a roll that left no legal move.
func (m *Manager) Pass(ctx context.Context, id, nick string) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	color, err := playing(s, nick)
	if err != nil {
		return err
	}
	switch {
	case s.Dice == nil || s.Dice.Consumed:
		return ErrRollFirst
	case s.Dice.KeepPlaying:
		return ErrNoPassOnBonus
	case s.hasMoves(color, s.Dice.Value):
		return ErrHasMoves
	}
	s.Dice, s.MustPass = nil, ""
	s.Turn = s.opponent(nick)
	s.Step, s.Selected = StepFrom, -1
	s.LastMoveTime = m.now()
	if err := m.persist(ctx, s); err != nil {
		return err
	}
	m.publish(s, Update{"turn": s.Turn, "step": s.Step, "dice": nil, "mustPass": nil})
	return nil
}

// Leave quits a game: a waiting game is cancelled, a running one is
// forfeited to the opponent.
func (m *Manager) Leave(ctx context.Context, id, nick string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrGameNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.colorOf(nick); !ok {
		return ErrNotInGame
	}
	switch s.Status {
	case StatusFinished:
		return ErrGameOver
	case StatusWaiting:
		delete(m.waiting, poolKey{s.Group, s.Size})
		return m.finish(ctx, s, "", Update{})
	}
	log.Info().Str("game", id).Str("nick", nick).Msg("player left")
	return m.finish(ctx, s, s.opponent(nick), Update{})
}

// finish ends s, records the result and sends the terminal message.
// Caller holds s.mu.
func (m *Manager) finish(ctx context.Context, s *Session, winner string, u Update) error {
	s.Status = StatusFinished
	s.Winner = winner
	s.Dice, s.MustPass = nil, ""
	s.Step, s.Selected = StepFrom, -1
	// Finished games linger one timeout window before the sweep drops them.
	s.LastMoveTime = m.now()
	if err := m.persist(ctx, s); err != nil {
		return err
	}
	if winner != "" && s.Players[1] != "" {
		r := Result{Group: s.Group, Size: s.Size, Winner: winner, Loser: s.opponent(winner)}
		if err := m.store.RecordResult(ctx, r); err != nil {
			log.Warn().Err(err).Str("game", s.ID).Msg("record result")
		}
	}
	if winner == "" {
		u["winner"] = nil
	} else {
		u["winner"] = winner
	}
	m.publish(s, u)
	m.hub.Close(s.ID)
	log.Info().Str("game", s.ID).Str("winner", winner).Msg("game finished")
	return nil
}

// Sweep forfeits idle games and forgets finished ones.
func (m *Manager) Sweep(ctx context.Context) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := now.Sub(s.LastMoveTime) > m.timeout
		switch {
		case s.Status == StatusFinished:
			if idle {
				delete(m.sessions, id)
			}
		case !idle:
		case s.Status == StatusWaiting:
			delete(m.waiting, poolKey{s.Group, s.Size})
			if err := m.finish(ctx, s, "", Update{}); err != nil {
				log.Warn().Err(err).Str("game", id).Msg("expire waiting game")
			}
		default:
			log.Info().Str("game", id).Str("nick", s.Turn).Msg("turn timed out")
			if err := m.finish(ctx, s, s.opponent(s.Turn), Update{}); err != nil {
				log.Warn().Err(err).Str("game", id).Msg("forfeit idle game")
			}
		}
		s.mu.Unlock()
	}
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep(ctx)
		}
	}
}

// Subscribe registers a listener; a running game sends its snapshot first.
func (m *Manager) Subscribe(id, nick string) (*broadcast.Listener, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	if _, ok := s.colorOf(nick); !ok {
		return nil, ErrNotInGame
	}
	if s.Status == StatusFinished {
		return nil, ErrGameOver
	}
	var initial []byte
	if s.Status == StatusPlaying {
		if initial, err = json.Marshal(s.snapshot()); err != nil {
			return nil, &Error{Kind: KindInternal, Msg: "encode snapshot", Err: err}
		}
	}
	return m.hub.Subscribe(id, nick, initial), nil
}

// Unsubscribe deregisters a listener whose client went away.
func (m *Manager) Unsubscribe(l *broadcast.Listener) { m.hub.Unsubscribe(l) }

// Ranking returns the top players of a group and board size.
func (m *Manager) Ranking(ctx context.Context, group string, size int) ([]RankEntry, error) {
	if size <= 0 || size%2 == 0 {
		return nil, ErrInvalidSize
	}
	out, err := m.store.Ranking(ctx, group, size, 10)
	if err != nil {
		return nil, &Error{Kind: KindInternal, Msg: "load ranking", Err: err}
	}
	return out, nil
}

// State returns a copy of the session for inspection.
func (m *Manager) State(id string) (*Session, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	cp := &Session{
		ID: s.ID, Group: s.Group, Size: s.Size, Players: s.Players,
		Initial: s.Initial, Turn: s.Turn, Step: s.Step, MustPass: s.MustPass,
		Selected: s.Selected, Winner: s.Winner, Status: s.Status, LastMoveTime: s.LastMoveTime,
	}
	for _, pc := range s.Pieces {
		if pc == nil {
			cp.Pieces = append(cp.Pieces, nil)
			continue
		}
		p := *pc
		cp.Pieces = append(cp.Pieces, &p)
	}
	if s.Dice != nil {
		d := *s.Dice
		cp.Dice = &d
	}
	return cp, nil
}

func (m *Manager) persist(ctx context.Context, s *Session) error {
	if err := m.store.SaveSession(ctx, s); err != nil {
		log.Error().Err(err).Str("game", s.ID).Msg("save session")
		return &Error{Kind: KindInternal, Msg: "save session", Err: err}
	}
	return nil
}

// publish encodes u under the session lock and fans it out.
func (m *Manager) publish(s *Session, u Update) {
	b, err := json.Marshal(u)
	if err != nil {
		log.Error().Err(err).Str("game", s.ID).Msg("encode update")
		return
	}
	m.hub.Publish(s.ID, b)
}
