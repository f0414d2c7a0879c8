// internal/store/memory.go
//
// In-memory Store. State is lost when the process exits.
//
// Sessions are kept as encoded JSON so later mutation of a live session
// never leaks into what was "saved".
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/robalobadob/tab/internal/server"
)

type rankKey struct {
	nick  string
	group string
	size  int
}

type memory struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	status   map[string]server.Status
	ranks    map[rankKey]*server.RankEntry
	users    map[string]string // nick -> hash
}

// NewMemory constructs an empty in-memory Store.
func NewMemory() Store {
	return &memory{
		sessions: make(map[string][]byte),
		status:   make(map[string]server.Status),
		ranks:    make(map[rankKey]*server.RankEntry),
		users:    make(map[string]string),
	}
}

func (m *memory) SaveSession(ctx context.Context, s *server.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = b
	m.status[s.ID] = s.Status
	return nil
}

func (m *memory) LoadSessions(ctx context.Context) ([]*server.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*server.Session, 0, len(m.sessions))
	for id, b := range m.sessions {
		if m.status[id] == server.StatusFinished {
			continue
		}
		s := new(server.Session)
		if err := json.Unmarshal(b, s); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", id, err)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memory) RecordResult(ctx context.Context, r server.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry(r.Winner, r.Group, r.Size).Victories++
	m.entry(r.Winner, r.Group, r.Size).Games++
	m.entry(r.Loser, r.Group, r.Size).Games++
	return nil
}

// entry returns the counters for nick, creating them. Caller holds mu.
func (m *memory) entry(nick, group string, size int) *server.RankEntry {
	k := rankKey{nick, group, size}
	e := m.ranks[k]
	if e == nil {
		e = &server.RankEntry{Nick: nick}
		m.ranks[k] = e
	}
	return e
}

func (m *memory) Ranking(ctx context.Context, group string, size, limit int) ([]server.RankEntry, error) {
	if limit <= 0 {
		limit = DefaultRankingLimit
	}
	m.mu.RLock()
	out := []server.RankEntry{}
	for k, e := range m.ranks {
		if k.group == group && k.size == size {
			out = append(out, *e)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Victories != b.Victories {
			return a.Victories > b.Victories
		}
		if a.Games != b.Games {
			return a.Games < b.Games
		}
		return a.Nick < b.Nick
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memory) CreateUser(ctx context.Context, nick, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[nick]; ok {
		return ErrUserExists
	}
	m.users[nick] = hash
	return nil
}

func (m *memory) PasswordHash(ctx context.Context, nick string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.users[nick]; ok {
		return h, nil
	}
	return "", ErrUserNotFound
}

func (m *memory) Close() error { return nil }
