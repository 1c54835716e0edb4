package repository

import (
	"context"
	"time"

	"coin_ledger/internal/domain"
)

// Store is the single consistency domain holding accounts, the admin pool
// and the ledger. Methods outside WithTx read committed state only.
type Store interface {
	// WithTx runs fn in one store transaction. If fn returns an error nothing
	// it wrote is kept. fn must only use tx, never the Store itself.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	CreateAccount(ctx context.Context, a *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetPool(ctx context.Context) (*domain.AdminPool, error)

	GetTopUp(ctx context.Context, id string) (*domain.TopUpRequest, error)
	ListTopUps(ctx context.Context, f domain.TopUpFilter) ([]*domain.TopUpRequest, error)
	ListTransactions(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error)
	ListGameSessions(ctx context.Context, accountID string, limit int) ([]*domain.GameSession, error)
	CountGameSessions(ctx context.Context, accountID string) (int64, error)

	GetSession(ctx context.Context, accountID string) (*domain.Session, error)
	// TouchSession bumps last_seen_at only if token is still the live one.
	TouchSession(ctx context.Context, accountID, token string, at time.Time) (bool, error)

	CreateAudit(ctx context.Context, log *domain.AuditLog) error
	ListAudit(ctx context.Context, limit int) ([]*domain.AuditLog, error)

	Stats(ctx context.Context, since time.Time) (*domain.Stats, error)
	LedgerTotals(ctx context.Context) (*domain.LedgerTotals, error)

	Ping(ctx context.Context) error
	Close() error
}

// Tx is the write surface available inside WithTx. Lock* methods hold the
// row until the transaction ends. Callers lock in the order
// topup request, accounts by id, admin pool.
type Tx interface {
	LockAccount(ctx context.Context, id string) (*domain.Account, error)
	// AddAccountBalance applies delta only if the result stays non-negative,
	// otherwise it returns domain.ErrInsufficientFunds.
	AddAccountBalance(ctx context.Context, id string, delta int64) (int64, error)
	LockPool(ctx context.Context) (*domain.AdminPool, error)
	// AddPoolBalance returns domain.ErrInsufficientPool when delta would
	// take the pool below zero.
	AddPoolBalance(ctx context.Context, delta int64) (int64, error)

	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	InsertGameSession(ctx context.Context, g *domain.GameSession) error

	InsertTopUp(ctx context.Context, r *domain.TopUpRequest) error
	LockTopUp(ctx context.Context, id string) (*domain.TopUpRequest, error)
	// FinishTopUp moves a pending request to a terminal status. A request that
	// is no longer pending yields domain.ErrAlreadyProcessed.
	FinishTopUp(ctx context.Context, id string, status domain.TopUpStatus, approvedBy, notes *string) (*domain.TopUpRequest, error)

	// ReplaceSession deletes any live session of the account and stores s.
	// The displaced row, if any, is returned.
	ReplaceSession(ctx context.Context, s *domain.Session) (*domain.Session, error)
	// DeleteSession removes the live session. An empty token matches any.
	DeleteSession(ctx context.Context, accountID, token string) (*domain.Session, error)

	// SetBanned writes the ban flag and reports the transition it caused.
	SetBanned(ctx context.Context, accountID string, banned bool, reason *string, by string) (domain.AccountChange, error)
}

// ChangeFeed streams committed ban-state writes. The channel is closed when
// ctx is done or the feed fails.
type ChangeFeed interface {
	Changes(ctx context.Context) (<-chan domain.AccountChange, error)
}

const defaultListLimit = 100

// ListLimit clamps a caller supplied page size.
func ListLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}
