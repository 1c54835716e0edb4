package sqlite

import (
	"context"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/repository"

	"github.com/google/uuid"
)

const topUpColumns = `id, account_id, amount, status, payment_proof, approved_by, admin_notes, created_at, updated_at`

func (s *Store) GetTopUp(ctx context.Context, id string) (*domain.TopUpRequest, error) {
	return getTopUp(ctx, s.sqlDB, id)
}

func getTopUp(ctx context.Context, q querier, id string) (*domain.TopUpRequest, error) {
	row := q.QueryRowContext(ctx, `SELECT `+topUpColumns+` FROM topup_requests WHERE id = ?`, id)
	return scanTopUp(row)
}

func (s *Store) ListTopUps(ctx context.Context, f domain.TopUpFilter) ([]*domain.TopUpRequest, error) {
	query := `SELECT ` + topUpColumns + ` FROM topup_requests WHERE 1 = 1`
	var args []any
	if f.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Status == domain.TopUpPending {
		query += ` ORDER BY created_at ASC, rowid ASC`
	} else {
		query += ` ORDER BY created_at DESC, rowid DESC`
	}
	query += ` LIMIT ?`
	args = append(args, repository.ListLimit(f.Limit))

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.TopUpRequest
	for rows.Next() {
		t, err := scanTopUp(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (t *storeTx) InsertTopUp(ctx context.Context, r *domain.TopUpRequest) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := t.now()
	r.Status = domain.TopUpPending
	r.CreatedAt, r.UpdatedAt = now, now
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO topup_requests (id, account_id, amount, status, payment_proof, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.AccountID, r.Amount, r.Status, r.PaymentProof, toMillis(now), toMillis(now))
	return err
}

func (t *storeTx) LockTopUp(ctx context.Context, id string) (*domain.TopUpRequest, error) {
	return getTopUp(ctx, t.q, id)
}

func (t *storeTx) FinishTopUp(ctx context.Context, id string, status domain.TopUpStatus, approvedBy, notes *string) (*domain.TopUpRequest, error) {
	res, err := t.q.ExecContext(ctx, `
		UPDATE topup_requests
		SET status = ?, approved_by = ?, admin_notes = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`, status, approvedBy, notes, toMillis(t.now()), id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	r, err := getTopUp(ctx, t.q, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrAlreadyProcessed
	}
	return r, nil
}

func scanTopUp(row scanner) (*domain.TopUpRequest, error) {
	var (
		r                    domain.TopUpRequest
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&r.ID,
		&r.AccountID,
		&r.Amount,
		&r.Status,
		&r.PaymentProof,
		&r.ApprovedBy,
		&r.AdminNotes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return &r, nil
}
