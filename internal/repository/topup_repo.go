package repository

import (
	"context"
	"errors"
	"strconv"

	"coin_ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TopUpRepository struct {
	q querier
}

func NewTopUpRepository(q querier) *TopUpRepository {
	return &TopUpRepository{q: q}
}

const topUpColumns = `id, account_id, amount, status, payment_proof, approved_by, admin_notes, created_at, updated_at`

// GetByID retrieves top-up request by ID
func (r *TopUpRepository) GetByID(ctx context.Context, id string) (*domain.TopUpRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.q.QueryRow(ctx, `SELECT `+topUpColumns+` FROM topup_requests WHERE id = $1`, id)
	return scanTopUp(row)
}

// Lock reads the request with FOR UPDATE so concurrent approvals serialize on it
func (r *TopUpRepository) Lock(ctx context.Context, id string) (*domain.TopUpRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.q.QueryRow(ctx, `SELECT `+topUpColumns+` FROM topup_requests WHERE id = $1 FOR UPDATE`, id)
	return scanTopUp(row)
}

// List returns requests filtered by account and status, pending ones oldest first
func (r *TopUpRepository) List(ctx context.Context, f domain.TopUpFilter) ([]*domain.TopUpRequest, error) {
	query := `SELECT ` + topUpColumns + ` FROM topup_requests WHERE TRUE`
	var args []any
	if f.AccountID != "" {
		if _, err := uuid.Parse(f.AccountID); err != nil {
			return nil, nil
		}
		args = append(args, f.AccountID)
		query += ` AND account_id = $` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if f.Status == domain.TopUpPending {
		query += ` ORDER BY created_at ASC`
	} else {
		query += ` ORDER BY created_at DESC`
	}
	args = append(args, ListLimit(f.Limit))
	query += ` LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.q.Query(ctx, query, args...)
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

// Create creates a new pending request
func (r *TopUpRepository) Create(ctx context.Context, t *domain.TopUpRequest) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Status = domain.TopUpPending
	return r.q.QueryRow(ctx, `
		INSERT INTO topup_requests (id, account_id, amount, status, payment_proof)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, t.ID, t.AccountID, t.Amount, t.Status, t.PaymentProof).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// Finish updates status only while the request is still pending
func (r *TopUpRepository) Finish(ctx context.Context, id string, status domain.TopUpStatus, approvedBy, notes *string) (*domain.TopUpRequest, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE topup_requests
		SET status = $2, approved_by = $3, admin_notes = $4, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+topUpColumns,
		id, status, approvedBy, notes,
	)
	t, err := scanTopUp(row)
	if errors.Is(err, domain.ErrNotFound) {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM topup_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrAlreadyProcessed
		}
	}
	return t, err
}

func scanTopUp(row pgx.Row) (*domain.TopUpRequest, error) {
	var t domain.TopUpRequest
	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Amount,
		&t.Status,
		&t.PaymentProof,
		&t.ApprovedBy,
		&t.AdminNotes,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}
