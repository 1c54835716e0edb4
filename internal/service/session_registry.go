package service

import (
	"context"
	"errors"
	"time"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/events"
	"coin_ledger/internal/logger"
	"coin_ledger/internal/metrics"
	"coin_ledger/internal/repository"
)

// Reasons carried by session_revoked.
const (
	RevokedDisplaced = "displaced"
	RevokedLogout    = "logout"
	RevokedBanned    = "banned"
	RevokedExpired   = "expired"
)

// SessionRegistry is the only authority on which session of an account is
// live. Acquire is last-writer-wins.
type SessionRegistry struct {
	store  repository.Store
	events events.Publisher
	idle   time.Duration
	now    func() time.Time
}

// NewSessionRegistry returns a registry. idle <= 0 disables idle expiry.
func NewSessionRegistry(store repository.Store, pub events.Publisher, idle time.Duration) *SessionRegistry {
	return &SessionRegistry{store: store, events: pub, idle: idle, now: time.Now}
}

// AcquireTx replaces the account's live session with token inside tx and
// returns the displaced session, if any. Callers must call Displaced once
// the transaction commits.
func (r *SessionRegistry) AcquireTx(ctx context.Context, tx repository.Tx, accountID, token string) (*domain.Session, error) {
	now := r.now()
	return tx.ReplaceSession(ctx, &domain.Session{
		AccountID:  accountID,
		Token:      token,
		CreatedAt:  now,
		LastSeenAt: now,
	})
}

// Displaced announces a session pushed out by a newer login.
func (r *SessionRegistry) Displaced(ctx context.Context, prev *domain.Session) {
	if prev == nil {
		return
	}
	metrics.SessionsDisplaced.Inc()
	logger.WithContext(ctx).Info("session displaced", "account_id", prev.AccountID)
	r.revoked(prev, RevokedDisplaced)
}

// Release removes the live session. A non-empty token only releases that
// exact session, so a stale logout cannot end a newer login.
func (r *SessionRegistry) Release(ctx context.Context, accountID, token, reason string) (bool, error) {
	var prev *domain.Session
	err := r.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		prev, err = tx.DeleteSession(ctx, accountID, token)
		return err
	})
	if err != nil {
		return false, err
	}
	if prev == nil {
		return false, nil
	}
	r.revoked(prev, reason)
	return true, nil
}

// Validate reports whether token is the account's live session and marks
// it as seen.
func (r *SessionRegistry) Validate(ctx context.Context, accountID, token string) error {
	sess, err := r.store.GetSession(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthenticated
		}
		return err
	}
	if sess.Token != token {
		return domain.ErrSessionDisplaced
	}

	now := r.now()
	if r.idle > 0 && now.Sub(sess.LastSeenAt) > r.idle {
		if _, err := r.Release(ctx, accountID, token, RevokedExpired); err != nil {
			return err
		}
		return domain.ErrSessionExpired
	}

	live, err := r.store.TouchSession(ctx, accountID, token, now)
	if err != nil {
		return err
	}
	if !live {
		// replaced between the read and the touch
		return domain.ErrSessionDisplaced
	}
	return nil
}

func (r *SessionRegistry) revoked(s *domain.Session, reason string) {
	r.events.Publish(events.Event{
		Type:      events.SessionRevoked,
		AccountID: s.AccountID,
		Session:   s.Token,
		Data:      events.RevokedPayload{AccountID: s.AccountID, Reason: reason},
		At:        r.now(),
	})
}
