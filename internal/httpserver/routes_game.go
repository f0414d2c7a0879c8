// internal/httpserver/routes_game.go
//
// Request/response routes for networked play:
//   - POST /register → create or confirm an account, returns a bearer token
//   - POST /join     → pair into a game of (group, size), returns its id
//   - POST /roll     → throw the sticks
//   - POST /notify   → pick a piece, then its destination
//   - POST /pass     → give up a turn that has no legal move
//   - POST /leave    → quit (forfeit if the game is running)
//   - POST /ranking  → top players of (group, size)
//
// Game routes authenticate with nick + password or a bearer token issued
// to the same nick. Success is {} plus any payload.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/tab/internal/server"
)

// gameReq is the union of every game route's body.
type gameReq struct {
	Nick     string `json:"nick"`
	Password string `json:"password"`
	Group    string `json:"group"`
	Game     string `json:"game"`
	Size     int    `json:"size"`
	Cell     *int   `json:"cell"`
}

type rankingReq struct {
	Group string `json:"group"`
	Size  int    `json:"size"`
}

// mountGame registers the request/response routes.
func (s *Server) mountGame(r chi.Router) {
	r.Post("/register", s.handleRegister)
	r.Post("/join", s.authed(func(ctx context.Context, req gameReq) (any, error) {
		id, err := s.games.Join(ctx, req.Group, req.Nick, req.Size)
		if err != nil {
			return nil, err
		}
		return map[string]string{"game": id}, nil
	}))
	r.Post("/roll", s.authed(func(ctx context.Context, req gameReq) (any, error) {
		return nil, s.games.Roll(ctx, req.Game, req.Nick)
	}))
	r.Post("/notify", s.authed(func(ctx context.Context, req gameReq) (any, error) {
		if req.Cell == nil {
			return nil, server.ErrInvalidCell
		}
		return nil, s.games.Notify(ctx, req.Game, req.Nick, *req.Cell)
	}))
	r.Post("/pass", s.authed(func(ctx context.Context, req gameReq) (any, error) {
		return nil, s.games.Pass(ctx, req.Game, req.Nick)
	}))
	r.Post("/leave", s.authed(func(ctx context.Context, req gameReq) (any, error) {
		return nil, s.games.Leave(ctx, req.Game, req.Nick)
	}))
	r.Post("/ranking", s.handleRanking)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req gameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
		return
	}
	tok, err := s.auth.Register(r.Context(), req.Nick, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	var req rankingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
		return
	}
	list, err := s.games.Ranking(r.Context(), req.Group, req.Size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ranking": list})
}

// authed decodes the body, checks credentials and runs op. The operation
// gets a context that outlives a client hang-up so an accepted move is
// always persisted.
func (s *Server) authed(op func(ctx context.Context, req gameReq) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gameReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
			return
		}
		if err := s.auth.Authenticate(r.Context(), req.Nick, req.Password, bearer(r)); err != nil {
			writeError(w, err)
			return
		}
		out, err := op(context.WithoutCancel(r.Context()), req)
		if err != nil {
			writeError(w, err)
			return
		}
		if out == nil {
			out = struct{}{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}
