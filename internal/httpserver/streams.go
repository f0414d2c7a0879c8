// internal/httpserver/streams.go
//
// Push channels for game updates:
//   - GET /update?game=&nick= → Server-Sent Events, one JSON object per event
//   - GET /ws?game=&nick=     → websocket, one JSON text message per update
//
// Both drain a broadcast listener. The stream ends when the game finishes
// (after the winner message), when the listener is dropped for being slow,
// or when the client goes away.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
)

func (s *Server) mountStreams(r chi.Router) {
	r.Get("/update", s.handleSSE)
	r.Get("/ws", s.handleWS)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}
	q := r.URL.Query()
	l, err := s.games.Subscribe(q.Get("game"), q.Get("nick"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer s.games.Unsubscribe(l)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ping := time.NewTicker(s.ping)
	defer ping.Stop()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-l.C:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(msg)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" && origin != s.origin {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden origin"})
		return
	}
	q := r.URL.Query()
	l, err := s.games.Subscribe(q.Get("game"), q.Get("nick"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer s.games.Unsubscribe(l)

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Warn().Err(err).Str("game", l.Game).Msg("websocket accept")
		return
	}
	defer func() { _ = c.Close(websocket.StatusGoingAway, "bye") }()

	// Clients only listen; CloseRead handles their close frame.
	ctx := c.CloseRead(r.Context())
	ping := time.NewTicker(s.ping)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := c.Ping(ctx); err != nil {
				return
			}
		case msg, ok := <-l.C:
			if !ok {
				_ = c.Close(websocket.StatusNormalClosure, "game over")
				return
			}
			if err := c.Write(ctx, websocket.MessageText, msg); err != nil {
				log.Debug().Err(err).Str("game", l.Game).Str("nick", l.Nick).Msg("websocket write")
				return
			}
		}
	}
}
