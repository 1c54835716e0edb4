package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/repository"

	"github.com/google/uuid"
)

// storeTx is the repository.Tx bound to one SQLite transaction.
type storeTx struct {
	q       querier
	now     func() time.Time
	changes []domain.AccountChange
}

func (s *Store) GetPool(ctx context.Context) (*domain.AdminPool, error) {
	return getPool(ctx, s.sqlDB)
}

func getPool(ctx context.Context, q querier) (*domain.AdminPool, error) {
	var (
		p         domain.AdminPool
		updatedAt int64
	)
	err := q.QueryRowContext(ctx, `SELECT balance, updated_at FROM admin_pool WHERE id = 1`).Scan(&p.Balance, &updatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func (t *storeTx) LockPool(ctx context.Context) (*domain.AdminPool, error) {
	return getPool(ctx, t.q)
}

func (t *storeTx) AddPoolBalance(ctx context.Context, delta int64) (int64, error) {
	var balance int64
	err := t.q.QueryRowContext(ctx, `
		UPDATE admin_pool SET balance = balance + ?, updated_at = ?
		WHERE id = 1 AND balance + ? >= 0
		RETURNING balance
	`, delta, toMillis(t.now()), delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, err := getPool(ctx, t.q); err != nil {
				return 0, err
			}
			return 0, domain.ErrInsufficientPool
		}
		return 0, err
	}
	return balance, nil
}

func (t *storeTx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = t.now()
	}
	res, err := t.q.ExecContext(ctx, `
		INSERT INTO transactions (id, party, account_id, kind, amount, balance_after, related_entity_id, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, tr.ID, tr.Party, tr.AccountID, tr.Kind, tr.Amount, tr.BalanceAfter, tr.RelatedEntityID, tr.Description, toMillis(tr.CreatedAt))
	if err != nil {
		return err
	}
	tr.Seq, err = res.LastInsertId()
	return err
}

const transactionColumns = `id, seq, party, account_id, kind, amount, balance_after, related_entity_id, description, created_at`

func (s *Store) ListTransactions(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE account_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, accountID, repository.ListLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		var (
			tr        domain.Transaction
			createdAt int64
		)
		if err := rows.Scan(
			&tr.ID,
			&tr.Seq,
			&tr.Party,
			&tr.AccountID,
			&tr.Kind,
			&tr.Amount,
			&tr.BalanceAfter,
			&tr.RelatedEntityID,
			&tr.Description,
			&createdAt,
		); err != nil {
			return nil, err
		}
		tr.CreatedAt = fromMillis(createdAt)
		result = append(result, &tr)
	}
	return result, rows.Err()
}

func (t *storeTx) InsertGameSession(ctx context.Context, g *domain.GameSession) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = t.now()
	}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO game_sessions (id, account_id, game_type, outcome, choice, coins_spent, coins_won, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.AccountID, g.GameType, g.Outcome, g.Choice, g.CoinsSpent, g.CoinsWon, toMillis(g.CreatedAt))
	return err
}

func (s *Store) ListGameSessions(ctx context.Context, accountID string, limit int) ([]*domain.GameSession, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, account_id, game_type, outcome, choice, coins_spent, coins_won, created_at
		FROM game_sessions
		WHERE account_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, accountID, repository.ListLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.GameSession
	for rows.Next() {
		var (
			g         domain.GameSession
			createdAt int64
		)
		if err := rows.Scan(&g.ID, &g.AccountID, &g.GameType, &g.Outcome, &g.Choice, &g.CoinsSpent, &g.CoinsWon, &createdAt); err != nil {
			return nil, err
		}
		g.CreatedAt = fromMillis(createdAt)
		result = append(result, &g)
	}
	return result, rows.Err()
}

func (s *Store) CountGameSessions(ctx context.Context, accountID string) (int64, error) {
	var n int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM game_sessions WHERE account_id = ?`, accountID).Scan(&n)
	return n, err
}
