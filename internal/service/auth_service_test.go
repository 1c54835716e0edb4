package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{Email: "not-an-email", Password: "password123", Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.auth.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "short", Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	a, err := f.auth.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Password: "password123", Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", a.Email)
	assert.Equal(t, domain.RoleUser, a.Role)
	assert.Zero(t, a.Balance)
	assert.NotEqual(t, "password123", a.PasswordHash)

	_, err = f.auth.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "password123", Username: "alice2"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestLoginCredentials(t *testing.T) {
	f := newFixture(t)
	f.account(t, "alice@example.com", 0)
	ctx := context.Background()

	_, _, err := f.auth.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = f.auth.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	token, acc, err := f.auth.Login(ctx, "ALICE@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	id, err := f.auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, id.Account.ID)
}

func TestSingleActiveSession(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "alice@example.com", 0)
	ctx := context.Background()

	var tokens []string
	for i := 0; i < 4; i++ {
		token, _, err := f.auth.Login(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		tokens = append(tokens, token)
	}

	latest, err := f.auth.Authenticate(ctx, tokens[3])
	require.NoError(t, err)

	sess, err := f.store.GetSession(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, latest.SessionID, sess.Token)

	var count int
	require.NoError(t, f.store.DB().QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE account_id = ?`, a.ID).Scan(&count))
	assert.Equal(t, 1, count)

	for _, old := range tokens[:3] {
		_, err := f.auth.Authenticate(ctx, old)
		assert.ErrorIs(t, err, domain.ErrSessionDisplaced)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	}

	revoked := f.bus.ofType(events.SessionRevoked)
	require.Len(t, revoked, 3)
	for _, e := range revoked {
		assert.Equal(t, RevokedDisplaced, e.Data.(events.RevokedPayload).Reason)
		assert.NotEqual(t, latest.SessionID, e.Session)
	}
}

func TestBannedLoginRefusedBeforeAcquire(t *testing.T) {
	f := newFixture(t)
	admin := f.adminAccount(t)
	a := f.account(t, "alice@example.com", 0)
	ctx := context.Background()

	_, err := f.admin.Ban(ctx, admin.ID, a.ID, "chargeback")
	require.NoError(t, err)

	_, _, err = f.auth.Login(ctx, "alice@example.com", "password123")
	require.ErrorIs(t, err, domain.ErrAccountBanned)
	var banned *domain.BannedError
	require.True(t, errors.As(err, &banned))
	assert.Equal(t, "chargeback", banned.Reason)

	_, err = f.store.GetSession(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLogoutOnlyEndsOwnSession(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "alice@example.com", 0)
	ctx := context.Background()

	first, _, err := f.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	firstClaims, err := f.auth.tokens.Parse(first)
	require.NoError(t, err)

	second, _, err := f.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	// a late logout from the displaced device
	require.NoError(t, f.auth.Logout(ctx, a.ID, firstClaims.SessionID))
	_, err = f.auth.Authenticate(ctx, second)
	require.NoError(t, err)

	id, err := f.auth.Authenticate(ctx, second)
	require.NoError(t, err)
	require.NoError(t, f.auth.Logout(ctx, a.ID, id.SessionID))
	_, err = f.auth.Authenticate(ctx, second)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestIdleSessionExpires(t *testing.T) {
	f := newFixture(t)
	f.account(t, "alice@example.com", 0)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.sessions.idle = 2 * time.Minute
	f.sessions.now = func() time.Time { return now }

	token, acc, err := f.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	now = now.Add(90 * time.Second)
	_, err = f.auth.Authenticate(ctx, token)
	require.NoError(t, err, "activity inside the window keeps the session")

	now = now.Add(3 * time.Minute)
	_, err = f.auth.Authenticate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)

	_, err = f.store.GetSession(ctx, acc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenTampering(t *testing.T) {
	f := newFixture(t)
	f.account(t, "alice@example.com", 0)
	ctx := context.Background()

	token, _, err := f.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = f.auth.Authenticate(ctx, token+"x")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	other := NewTokenIssuer("another-secret-0123456789", time.Hour)
	forged, err := other.Issue("whoever", "sid")
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := issuer.Issue("acc", "sid")
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, time.Minute).Parse(token)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}
