package sqlite

import (
	"context"
	"time"

	"coin_ledger/internal/domain"
)

func (s *Store) GetSession(ctx context.Context, accountID string) (*domain.Session, error) {
	var (
		sess                  domain.Session
		createdAt, lastSeenAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT account_id, session_token, created_at, last_seen_at
		FROM sessions WHERE account_id = ?
	`, accountID).Scan(&sess.AccountID, &sess.Token, &createdAt, &lastSeenAt)
	if err != nil {
		return nil, notFound(err)
	}
	sess.CreatedAt = fromMillis(createdAt)
	sess.LastSeenAt = fromMillis(lastSeenAt)
	return &sess, nil
}

func (s *Store) TouchSession(ctx context.Context, accountID, token string, at time.Time) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, `
		UPDATE sessions SET last_seen_at = ?
		WHERE account_id = ? AND session_token = ?
	`, toMillis(at), accountID, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (t *storeTx) ReplaceSession(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	prev, err := t.DeleteSession(ctx, sess.AccountID, "")
	if err != nil {
		return nil, err
	}
	_, err = t.q.ExecContext(ctx, `
		INSERT INTO sessions (account_id, session_token, created_at, last_seen_at)
		VALUES (?, ?, ?, ?)
	`, sess.AccountID, sess.Token, toMillis(sess.CreatedAt), toMillis(sess.LastSeenAt))
	if err != nil {
		return nil, err
	}
	return prev, nil
}

func (t *storeTx) DeleteSession(ctx context.Context, accountID, token string) (*domain.Session, error) {
	var (
		sess                  domain.Session
		createdAt, lastSeenAt int64
	)
	err := t.q.QueryRowContext(ctx, `
		DELETE FROM sessions
		WHERE account_id = ? AND (? = '' OR session_token = ?)
		RETURNING account_id, session_token, created_at, last_seen_at
	`, accountID, token, token).Scan(&sess.AccountID, &sess.Token, &createdAt, &lastSeenAt)
	if err != nil {
		if err = notFound(err); err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	sess.CreatedAt = fromMillis(createdAt)
	sess.LastSeenAt = fromMillis(lastSeenAt)
	return &sess, nil
}
