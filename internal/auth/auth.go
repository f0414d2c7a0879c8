// internal/auth/auth.go
//
// Player credentials.
// Responsibilities:
//   - Register a nick with a bcrypt-hashed password (idempotent for the
//     same password).
//   - Verify nick/password pairs on every mutating request.
//   - Sign and parse HS256 bearer tokens that stand in for the password.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/tab/internal/store"
)

var (
	ErrInvalidInput   = errors.New("nick and password are required")
	ErrUnknownUser    = errors.New("unknown user")
	ErrBadCredentials = errors.New("user registered with a different password")
	ErrInvalidToken   = errors.New("invalid token")
)

const maxNickLen = 32

// Users is the slice of the store that credentials need.
type Users interface {
	CreateUser(ctx context.Context, nick, passwordHash string) error
	PasswordHash(ctx context.Context, nick string) (string, error)
}

// Options configure token signing and hashing.
type Options struct {
	Secret string
	TTL    time.Duration
	Cost   int // bcrypt cost; 0 means bcrypt.DefaultCost
	Now    func() time.Time
}

// Service checks credentials against Users.
type Service struct {
	users  Users
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func New(users Users, opts Options) *Service {
	s := &Service{
		users:  users,
		secret: []byte(opts.Secret),
		ttl:    opts.TTL,
		cost:   opts.Cost,
		now:    opts.Now,
	}
	if s.ttl <= 0 {
		s.ttl = 14 * 24 * time.Hour
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func validate(nick, password string) error {
	if strings.TrimSpace(nick) == "" || password == "" || len(nick) > maxNickLen {
		return ErrInvalidInput
	}
	return nil
}

// Register creates nick, or accepts it again when the password matches.
// It returns a fresh bearer token.
func (s *Service) Register(ctx context.Context, nick, password string) (string, error) {
	if err := validate(nick, password); err != nil {
		return "", err
	}
	err := s.Verify(ctx, nick, password)
	if errors.Is(err, ErrUnknownUser) {
		h, herr := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if herr != nil {
			return "", fmt.Errorf("hash password: %w", herr)
		}
		err = s.users.CreateUser(ctx, nick, string(h))
		if errors.Is(err, store.ErrUserExists) {
			// Lost a race with another register of the same nick.
			err = s.Verify(ctx, nick, password)
		}
	}
	if err != nil {
		return "", err
	}
	tok, _, err := s.Sign(nick)
	return tok, err
}

// Verify checks a nick/password pair.
func (s *Service) Verify(ctx context.Context, nick, password string) error {
	if err := validate(nick, password); err != nil {
		return err
	}
	h, err := s.users.PasswordHash(ctx, nick)
	if errors.Is(err, store.ErrUserNotFound) {
		return ErrUnknownUser
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(h), []byte(password)) != nil {
		return ErrBadCredentials
	}
	return nil
}

// Sign issues a token for nick.
func (s *Service) Sign(nick string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   nick,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString(s.secret)
	return ss, exp, err
}

// Parse returns the nick a valid token was issued to.
func (s *Service) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !t.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Authenticate accepts either a bearer token issued to nick or its password.
func (s *Service) Authenticate(ctx context.Context, nick, password, bearer string) error {
	if bearer == "" {
		return s.Verify(ctx, nick, password)
	}
	sub, err := s.Parse(bearer)
	if err != nil {
		return err
	}
	if sub != nick {
		return ErrInvalidToken
	}
	return nil
}
