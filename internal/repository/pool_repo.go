package repository

import (
	"context"
	"errors"

	"coin_ledger/internal/domain"

	"github.com/jackc/pgx/v5"
)

// PoolRepository works on the single admin_pool row (id = 1).
type PoolRepository struct {
	q querier
}

func NewPoolRepository(q querier) *PoolRepository {
	return &PoolRepository{q: q}
}

func (r *PoolRepository) Get(ctx context.Context) (*domain.AdminPool, error) {
	var p domain.AdminPool
	err := r.q.QueryRow(ctx, `SELECT balance, updated_at FROM admin_pool WHERE id = 1`).Scan(&p.Balance, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PoolRepository) Lock(ctx context.Context) (*domain.AdminPool, error) {
	var p domain.AdminPool
	err := r.q.QueryRow(ctx, `SELECT balance, updated_at FROM admin_pool WHERE id = 1 FOR UPDATE`).Scan(&p.Balance, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PoolRepository) AddBalance(ctx context.Context, delta int64) (int64, error) {
	var balance int64
	err := r.q.QueryRow(ctx, `
		UPDATE admin_pool SET balance = balance + $1, updated_at = now()
		WHERE id = 1 AND balance + $1 >= 0
		RETURNING balance
	`, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM admin_pool WHERE id = 1)`).Scan(&exists); err != nil {
				return 0, err
			}
			if !exists {
				return 0, domain.ErrNotFound
			}
			return 0, domain.ErrInsufficientPool
		}
		return 0, err
	}
	return balance, nil
}
