package repository

import (
	"context"

	"coin_ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TransactionRepository struct {
	q querier
}

func NewTransactionRepository(q querier) *TransactionRepository {
	return &TransactionRepository{q: q}
}

const transactionColumns = `id, seq, party, account_id, kind, amount, balance_after, related_entity_id, description, created_at`

// GetByAccountID returns the account side of the ledger, newest first.
// seq is assigned under the account lock, so it follows commit order.
func (r *TransactionRepository) GetByAccountID(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE account_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`, accountID, ListLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// GetByRelatedEntity returns every row booked for one round or top-up.
func (r *TransactionRepository) GetByRelatedEntity(ctx context.Context, entityID string) ([]*domain.Transaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE related_entity_id = $1
		ORDER BY seq ASC
	`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// Create appends a ledger row. Rows are never updated afterwards.
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return r.q.QueryRow(ctx, `
		INSERT INTO transactions (id, party, account_id, kind, amount, balance_after, related_entity_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq, created_at
	`, t.ID, t.Party, t.AccountID, t.Kind, t.Amount, t.BalanceAfter, t.RelatedEntityID, t.Description).
		Scan(&t.Seq, &t.CreatedAt)
}

func (r *TransactionRepository) scanRows(rows pgx.Rows) ([]*domain.Transaction, error) {
	var result []*domain.Transaction

	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.Seq,
			&t.Party,
			&t.AccountID,
			&t.Kind,
			&t.Amount,
			&t.BalanceAfter,
			&t.RelatedEntityID,
			&t.Description,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}

	return result, rows.Err()
}
