// internal/store/store.go
//
// Durable state for the game server.
// Responsibilities:
//   - Session documents so running games survive a restart.
//   - Per (group, size) ranking counters.
//   - Registered users and their password hashes.
//
// Two implementations: SQLite (production) and memory (tests, ephemeral runs).
package store

import (
	"context"
	"errors"

	"github.com/robalobadob/tab/internal/server"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// DefaultRankingLimit bounds ranking queries that pass no limit.
const DefaultRankingLimit = 10

// Store is everything the server binary persists.
type Store interface {
	server.Persister

	// CreateUser inserts nick; ErrUserExists if it is taken.
	CreateUser(ctx context.Context, nick, passwordHash string) error
	// PasswordHash returns the stored hash; ErrUserNotFound if missing.
	PasswordHash(ctx context.Context, nick string) (string, error)

	Close() error
}

// Memory is the DB_PATH value that selects the in-process backend.
const Memory = "memory"

// Open picks a backend for dsn: Memory keeps everything in process,
// anything else is a SQLite path.
func Open(dsn string) (Store, error) {
	if dsn == Memory {
		return NewMemory(), nil
	}
	db, err := OpenSQLite(dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}
