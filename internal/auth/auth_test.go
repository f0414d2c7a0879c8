package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/tab/internal/store"
)

func newService(now func() time.Time) *Service {
	return New(store.NewMemory(), Options{Secret: "test", TTL: time.Hour, Cost: bcrypt.MinCost, Now: now})
}

func TestRegisterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newService(nil)

	tok, err := s.Register(ctx, "ann", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	_, err = s.Register(ctx, "ann", "pw")
	require.NoError(t, err)

	_, err = s.Register(ctx, "ann", "other")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestRegisterValidates(t *testing.T) {
	ctx := context.Background()
	s := newService(nil)
	for _, tc := range []struct{ nick, pw string }{
		{"", "pw"},
		{"  ", "pw"},
		{"ann", ""},
		{"a-very-long-nick-that-goes-on-and-on", "pw"},
	} {
		_, err := s.Register(ctx, tc.nick, tc.pw)
		assert.ErrorIs(t, err, ErrInvalidInput, "nick %q", tc.nick)
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	s := newService(nil)
	_, err := s.Register(ctx, "ann", "pw")
	require.NoError(t, err)

	assert.NoError(t, s.Verify(ctx, "ann", "pw"))
	assert.ErrorIs(t, s.Verify(ctx, "ann", "nope"), ErrBadCredentials)
	assert.ErrorIs(t, s.Verify(ctx, "bob", "pw"), ErrUnknownUser)
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newService(func() time.Time { return now })

	tok, err := s.Register(ctx, "ann", "pw")
	require.NoError(t, err)

	nick, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "ann", nick)

	assert.NoError(t, s.Authenticate(ctx, "ann", "", tok))
	assert.ErrorIs(t, s.Authenticate(ctx, "bob", "", tok), ErrInvalidToken)
	assert.ErrorIs(t, s.Authenticate(ctx, "ann", "", tok+"x"), ErrInvalidToken)
	assert.NoError(t, s.Authenticate(ctx, "ann", "pw", ""))

	other := New(store.NewMemory(), Options{Secret: "different", Now: func() time.Time { return now }})
	_, err = other.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	now = now.Add(2 * time.Hour)
	_, err = s.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
}
