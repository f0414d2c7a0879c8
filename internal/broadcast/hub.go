// internal/broadcast/hub.go
//
// Per-game fan-out of push messages to connected listeners.
// Responsibilities:
//   - Register one listener per (game, nick); a reconnect replaces the old one.
//   - Best-effort, non-blocking delivery: a listener that cannot keep up is dropped.
//   - Close every listener of a game after its terminal message.
//
// Transports (SSE, websocket) only drain Listener.C and call Unsubscribe
// when their client goes away.
package broadcast

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const bufferSize = 32

// Listener is one subscription. C is closed when the hub drops it.
type Listener struct {
	Game string
	Nick string
	C    <-chan []byte

	ch     chan []byte
	closed bool
}

// Hub holds listeners keyed by game id.
type Hub struct {
	mu    sync.Mutex
	games map[string]map[string]*Listener // game -> nick -> listener
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{games: make(map[string]map[string]*Listener)}
}

// Subscribe registers nick on game. If initial is non-nil it is queued
// before any later message.
func (h *Hub) Subscribe(game, nick string, initial []byte) *Listener {
	ch := make(chan []byte, bufferSize)
	l := &Listener{Game: game, Nick: nick, C: ch, ch: ch}
	if initial != nil {
		ch <- initial
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	byNick := h.games[game]
	if byNick == nil {
		byNick = make(map[string]*Listener)
		h.games[game] = byNick
	}
	if old := byNick[nick]; old != nil {
		h.drop(old)
	}
	byNick[nick] = l
	return l
}

// Unsubscribe removes l; it is safe to call more than once.
func (h *Hub) Unsubscribe(l *Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if byNick := h.games[l.Game]; byNick != nil && byNick[l.Nick] == l {
		h.drop(l)
	}
}

// Publish delivers msg to every listener of game without blocking.
func (h *Hub) Publish(game string, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, l := range h.games[game] {
		select {
		case l.ch <- msg:
		default:
			log.Warn().Str("game", game).Str("nick", l.Nick).Msg("listener too slow, dropping")
			h.drop(l)
		}
	}
}

// Close drops every listener of game.
func (h *Hub) Close(game string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, l := range h.games[game] {
		h.drop(l)
	}
	delete(h.games, game)
}

// Count returns how many listeners game has.
func (h *Hub) Count(game string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.games[game])
}

// drop closes l and forgets it. Caller holds h.mu.
func (h *Hub) drop(l *Listener) {
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
	if byNick := h.games[l.Game]; byNick != nil && byNick[l.Nick] == l {
		delete(byNick, l.Nick)
		if len(byNick) == 0 {
			delete(h.games, l.Game)
		}
	}
}
