// internal/httpserver/server.go
//
// HTTP server wiring for the Tâb backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", POST /register, POST /ranking.
//   - Game endpoints (nick + password or bearer token): /join, /roll,
//     /notify, /pass, /leave.
//   - Push endpoints: GET /update (SSE) and GET /ws (websocket).
//
// Notes:
//   - The request timeout only wraps the request/response routes; push
//     streams live as long as their client.
//   - Every failure is a JSON body {"error": reason}.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tab/internal/auth"
	"github.com/robalobadob/tab/internal/server"
)

// Options tune the HTTP surface.
type Options struct {
	ClientOrigin   string
	RequestTimeout time.Duration
	PingInterval   time.Duration // keepalive on push streams
}

// Server bundles the router with the game manager and credentials.
type Server struct {
	r      *chi.Mux
	games  *server.Manager
	auth   *auth.Service
	origin string
	ping   time.Duration
}

// New constructs a Server, installs middleware, and registers routes.
func New(games *server.Manager, authSvc *auth.Service, opts Options) *Server {
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 15 * time.Second
	}
	s := &Server{r: chi.NewRouter(), games: games, auth: authSvc, origin: opts.ClientOrigin, ping: opts.PingInterval}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(jsonContentType)
	s.r.Use(s.cors)

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"tab","endpoints":["/health","POST /register","POST /join","POST /roll","POST /notify","POST /pass","POST /leave","POST /ranking","GET /update","GET /ws"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(opts.RequestTimeout))
		r.Use(requestLog)
		s.mountGame(r)
	})
	s.mountStreams(s.r)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	return s
}

// Start serves HTTP on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdown)
	}()
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLog writes one debug line per request.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// ------------------------------- responses ---------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and {"error": reason}.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": reason(err)})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnknownUser),
		errors.Is(err, auth.ErrBadCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	}
	var se *server.Error
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Kind {
	case server.KindAuth:
		return http.StatusUnauthorized
	case server.KindNotFound:
		return http.StatusNotFound
	case server.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// reason hides internal detail from clients.
func reason(err error) string {
	if statusOf(err) == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		return "internal error"
	}
	var se *server.Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return err.Error()
}

// bearer extracts a token from "Authorization: Bearer <token>".
func bearer(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}
