// main.go
//
// Tâb game server.
// Responsibilities:
//   - Load configuration (.env + environment) and set the log level.
//   - Open the store (SQLite, or memory when DB_PATH=memory) and restore
//     unfinished games.
//   - Run the inactivity sweeper and the HTTP server until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tab/internal/auth"
	"github.com/robalobadob/tab/internal/broadcast"
	"github.com/robalobadob/tab/internal/config"
	"github.com/robalobadob/tab/internal/httpserver"
	"github.com/robalobadob/tab/internal/server"
	"github.com/robalobadob/tab/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	games := server.NewManager(db, broadcast.NewHub(), server.Options{Timeout: cfg.GameTimeout})
	games.Restore(ctx)
	go games.RunSweeper(ctx, cfg.SweepInterval)

	credentials := auth.New(db, auth.Options{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL()})
	srv := httpserver.New(games, credentials, httpserver.Options{ClientOrigin: cfg.ClientOrigin})

	log.Info().Str("port", cfg.Port).Str("db", cfg.DBPath).Msg("starting tab server")
	if err := srv.Start(ctx, ":"+cfg.Port); err != nil {
		log.Error().Err(err).Msg("server exited")
	}
	log.Info().Msg("shut down")
}
