// internal/store/sqlite.go
//
// SQLite-backed Store.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying the embedded migrations (idempotent, recorded in _migrations).
//   - Session documents, ranking counters and users.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tab/assets"
	"github.com/robalobadob/tab/internal/server"
)

// SQLite wraps a migrated database handle.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if missing) the database at dsn and migrates it.
// ":memory:" gives a private in-memory database.
func OpenSQLite(dsn string) (*SQLite, error) {
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// migrate applies every embedded script not yet listed in _migrations.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}
	scripts, err := assets.Migrations()
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	for _, m := range scripts {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, m.Name).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", m.Name).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		// Scripts that manage their own transaction run as-is.
		if strings.Contains(strings.ToUpper(m.SQL), "BEGIN TRANSACTION") {
			if _, err := db.Exec(m.SQL); err != nil {
				return fmt.Errorf("apply %s: %w", m.Name, err)
			}
			if _, err := db.Exec(`INSERT INTO _migrations(name) VALUES (?)`, m.Name); err != nil {
				return fmt.Errorf("record %s: %w", m.Name, err)
			}
			log.Info().Str("migration", m.Name).Msg("applied (self-managed)")
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.Name, err)
		}
		log.Info().Str("migration", m.Name).Msg("applied")
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// SaveSession upserts the session document.
func (s *SQLite) SaveSession(ctx context.Context, sess *server.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, status, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			data = excluded.data,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		sess.ID, string(sess.Status), string(b))
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// LoadSessions returns every session that has not finished.
func (s *SQLite) LoadSessions(ctx context.Context) ([]*server.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM sessions WHERE status != ? ORDER BY id`, string(server.StatusFinished))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*server.Session
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		sess := new(server.Session)
		if err := json.Unmarshal([]byte(data), sess); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", id, err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// RecordResult bumps the winner's victories and both players' game counts.
func (s *SQLite) RecordResult(ctx context.Context, r server.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const bump = `
		INSERT INTO rankings (nick, grp, size, victories, games) VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(nick, grp, size) DO UPDATE SET
			victories = victories + excluded.victories,
			games = games + 1`
	if _, err := tx.ExecContext(ctx, bump, r.Winner, r.Group, r.Size, 1); err != nil {
		return fmt.Errorf("bump winner: %w", err)
	}
	if _, err := tx.ExecContext(ctx, bump, r.Loser, r.Group, r.Size, 0); err != nil {
		return fmt.Errorf("bump loser: %w", err)
	}
	return tx.Commit()
}

// Ranking lists the top players by victories, then fewest games.
func (s *SQLite) Ranking(ctx context.Context, group string, size, limit int) ([]server.RankEntry, error) {
	if limit <= 0 {
		limit = DefaultRankingLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT nick, victories, games
		FROM rankings
		WHERE grp=? AND size=?
		ORDER BY victories DESC, games ASC, nick ASC
		LIMIT ?`, group, size, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]server.RankEntry, 0, limit)
	for rows.Next() {
		var e server.RankEntry
		if err := rows.Scan(&e.Nick, &e.Victories, &e.Games); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateUser(ctx context.Context, nick, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (nick, password_hash) VALUES (?, ?) ON CONFLICT(nick) DO NOTHING`, nick, hash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserExists
	}
	return nil
}

func (s *SQLite) PasswordHash(ctx context.Context, nick string) (string, error) {
	var h string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE nick=?`, nick).Scan(&h)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	return h, err
}
