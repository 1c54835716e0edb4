package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coin_ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AccountRepository struct {
	q querier
}

func NewAccountRepository(q querier) *AccountRepository {
	return &AccountRepository{q: q}
}

const accountColumns = `id, email, username, full_name, password_hash, role, balance,
	is_banned, ban_reason, banned_at, banned_by, created_at, updated_at`

// Create inserts an account. Balance always starts at zero.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = domain.RoleUser
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO accounts (id, email, username, full_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING balance, created_at, updated_at
	`, a.ID, strings.ToLower(a.Email), a.Username, a.FullName, a.PasswordHash, a.Role).
		Scan(&a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, strings.ToLower(email))
	return scanAccount(row)
}

// Lock reads the account with FOR UPDATE
func (r *AccountRepository) Lock(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

// AddBalance is a conditional update: the row is only touched when the
// resulting balance is non-negative.
func (r *AccountRepository) AddBalance(ctx context.Context, id string, delta int64) (int64, error) {
	var balance int64
	err := r.q.QueryRow(ctx, `
		UPDATE accounts SET balance = balance + $1, updated_at = now()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`, delta, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Could be not found or insufficient funds, check which
			var exists bool
			if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
				return 0, err
			}
			if !exists {
				return 0, domain.ErrNotFound
			}
			return 0, domain.ErrInsufficientFunds
		}
		return 0, err
	}
	return balance, nil
}

// SetBanned locks the row, writes the flag and reports old and new state.
func (r *AccountRepository) SetBanned(ctx context.Context, id string, banned bool, reason *string, by string) (domain.AccountChange, error) {
	change := domain.AccountChange{AccountID: id, NewBanned: banned}

	a, err := r.Lock(ctx, id)
	if err != nil {
		return change, err
	}
	change.OldBanned = a.Banned
	if !banned {
		reason = nil
	}
	change.BanReason = reason

	_, err = r.q.Exec(ctx, `
		UPDATE accounts
		SET is_banned = $2,
		    ban_reason = $3,
		    banned_at = CASE WHEN $2 THEN COALESCE(banned_at, now()) ELSE NULL END,
		    banned_by = CASE WHEN $2 THEN $4::uuid ELSE NULL END,
		    updated_at = now()
		WHERE id = $1
	`, id, banned, reason, nullable(by))
	if err != nil {
		return change, fmt.Errorf("update ban state: %w", err)
	}
	return change, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Username,
		&a.FullName,
		&a.PasswordHash,
		&a.Role,
		&a.Balance,
		&a.Banned,
		&a.BanReason,
		&a.BannedAt,
		&a.BannedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}
