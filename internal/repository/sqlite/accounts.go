package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"coin_ledger/internal/domain"

	"github.com/google/uuid"
)

const accountColumns = `id, email, username, full_name, password_hash, role, balance,
	is_banned, ban_reason, banned_at, banned_by, created_at, updated_at`

func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = domain.RoleUser
	}
	now := s.now()
	a.Email = strings.ToLower(a.Email)
	a.Balance = 0
	a.CreatedAt, a.UpdatedAt = now, now

	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO accounts (id, email, username, full_name, password_hash, role, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, a.ID, a.Email, a.Username, a.FullName, a.PasswordHash, a.Role, toMillis(now), toMillis(now))
	if err != nil && isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return getAccount(ctx, s.sqlDB, id)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, strings.ToLower(email))
	return scanAccount(row)
}

func getAccount(ctx context.Context, q querier, id string) (*domain.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// LockAccount needs no row lock: the transaction already holds the write lock.
func (t *storeTx) LockAccount(ctx context.Context, id string) (*domain.Account, error) {
	return getAccount(ctx, t.q, id)
}

func (t *storeTx) AddAccountBalance(ctx context.Context, id string, delta int64) (int64, error) {
	var balance int64
	err := t.q.QueryRowContext(ctx, `
		UPDATE accounts SET balance = balance + ?, updated_at = ?
		WHERE id = ? AND balance + ? >= 0
		RETURNING balance
	`, delta, toMillis(t.now()), id, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists int
			if err := t.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM accounts WHERE id = ?`, id).Scan(&exists); err != nil {
				return 0, err
			}
			if exists == 0 {
				return 0, domain.ErrNotFound
			}
			return 0, domain.ErrInsufficientFunds
		}
		return 0, err
	}
	return balance, nil
}

func (t *storeTx) SetBanned(ctx context.Context, accountID string, banned bool, reason *string, by string) (domain.AccountChange, error) {
	change := domain.AccountChange{AccountID: accountID, NewBanned: banned}

	a, err := t.LockAccount(ctx, accountID)
	if err != nil {
		return change, err
	}
	change.OldBanned = a.Banned
	if !banned {
		reason = nil
	}
	change.BanReason = reason

	now := toMillis(t.now())
	var bannedAt, bannedBy any
	if banned {
		bannedAt = now
		if a.BannedAt != nil {
			bannedAt = toMillis(*a.BannedAt)
		}
		bannedBy = nullString(by)
	}

	_, err = t.q.ExecContext(ctx, `
		UPDATE accounts
		SET is_banned = ?, ban_reason = ?, banned_at = ?, banned_by = ?, updated_at = ?
		WHERE id = ?
	`, boolInt(banned), reason, bannedAt, bannedBy, now, accountID)
	if err != nil {
		return change, fmt.Errorf("update ban state: %w", err)
	}

	// published only after commit
	if banned || change.OldBanned {
		t.changes = append(t.changes, change)
	}
	return change, nil
}

func scanAccount(row scanner) (*domain.Account, error) {
	var (
		a                    domain.Account
		banned               int
		bannedAt             sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Username,
		&a.FullName,
		&a.PasswordHash,
		&a.Role,
		&a.Balance,
		&banned,
		&a.BanReason,
		&bannedAt,
		&a.BannedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	a.Banned = banned != 0
	if bannedAt.Valid {
		ts := fromMillis(bannedAt.Int64)
		a.BannedAt = &ts
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}
