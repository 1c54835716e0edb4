package repository

import (
	"context"
	"time"

	"coin_ledger/internal/domain"

	"github.com/google/uuid"
)

// SessionRepository keeps at most one row per account (account_id is the key).
type SessionRepository struct {
	q querier
}

func NewSessionRepository(q querier) *SessionRepository {
	return &SessionRepository{q: q}
}

func (r *SessionRepository) Get(ctx context.Context, accountID string) (*domain.Session, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, domain.ErrNotFound
	}
	var s domain.Session
	err := r.q.QueryRow(ctx, `
		SELECT account_id, session_token, created_at, last_seen_at
		FROM sessions WHERE account_id = $1
	`, accountID).Scan(&s.AccountID, &s.Token, &s.CreatedAt, &s.LastSeenAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// Replace deletes the previous row then inserts s. ON CONFLICT covers a
// concurrent insert for an account that had no row to lock.
func (r *SessionRepository) Replace(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	prev, err := r.Delete(ctx, s.AccountID, "")
	if err != nil {
		return nil, err
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO sessions (account_id, session_token, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
		SET session_token = EXCLUDED.session_token,
		    created_at = EXCLUDED.created_at,
		    last_seen_at = EXCLUDED.last_seen_at
	`, s.AccountID, s.Token, s.CreatedAt, s.LastSeenAt)
	if err != nil {
		return nil, err
	}
	return prev, nil
}

// Delete removes the account's row. When token is set only that exact
// session is removed. Returns nil if nothing matched.
func (r *SessionRepository) Delete(ctx context.Context, accountID, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.q.QueryRow(ctx, `
		DELETE FROM sessions
		WHERE account_id = $1 AND ($2 = '' OR session_token = $2)
		RETURNING account_id, session_token, created_at, last_seen_at
	`, accountID, token).Scan(&s.AccountID, &s.Token, &s.CreatedAt, &s.LastSeenAt)
	if err != nil {
		err = notFound(err)
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Touch(ctx context.Context, accountID, token string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE sessions SET last_seen_at = $3
		WHERE account_id = $1 AND session_token = $2
	`, accountID, token, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) TouchSession(ctx context.Context, accountID, token string, at time.Time) (bool, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return false, nil
	}
	return s.sessions.Touch(ctx, accountID, token, at)
}
