package repository

import (
	"context"
	"errors"
	"fmt"

	"coin_ledger/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore is the Postgres backed Store.
type PgStore struct {
	db           *pgxpool.Pool
	accounts     *AccountRepository
	pool         *PoolRepository
	transactions *TransactionRepository
	games        *GameSessionRepository
	topups       *TopUpRepository
	sessions     *SessionRepository
	audit        *AuditRepository
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{
		db:           db,
		accounts:     NewAccountRepository(db),
		pool:         NewPoolRepository(db),
		transactions: NewTransactionRepository(db),
		games:        NewGameSessionRepository(db),
		topups:       NewTopUpRepository(db),
		sessions:     NewSessionRepository(db),
		audit:        NewAuditRepository(db),
	}
}

func (s *PgStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, newPgTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PgStore) CreateAccount(ctx context.Context, a *domain.Account) error {
	return s.accounts.Create(ctx, a)
}

func (s *PgStore) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *PgStore) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.accounts.GetByEmail(ctx, email)
}

func (s *PgStore) GetPool(ctx context.Context) (*domain.AdminPool, error) {
	return s.pool.Get(ctx)
}

func (s *PgStore) GetTopUp(ctx context.Context, id string) (*domain.TopUpRequest, error) {
	return s.topups.GetByID(ctx, id)
}

func (s *PgStore) ListTopUps(ctx context.Context, f domain.TopUpFilter) ([]*domain.TopUpRequest, error) {
	return s.topups.List(ctx, f)
}

func (s *PgStore) ListTransactions(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error) {
	return s.transactions.GetByAccountID(ctx, accountID, limit)
}

func (s *PgStore) ListGameSessions(ctx context.Context, accountID string, limit int) ([]*domain.GameSession, error) {
	return s.games.GetByAccountID(ctx, accountID, limit)
}

func (s *PgStore) CountGameSessions(ctx context.Context, accountID string) (int64, error) {
	return s.games.CountByAccountID(ctx, accountID)
}

func (s *PgStore) GetSession(ctx context.Context, accountID string) (*domain.Session, error) {
	return s.sessions.Get(ctx, accountID)
}

func (s *PgStore) CreateAudit(ctx context.Context, log *domain.AuditLog) error {
	return s.audit.Create(ctx, log)
}

func (s *PgStore) ListAudit(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	return s.audit.List(ctx, limit)
}

func (s *PgStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PgStore) Close() error {
	s.db.Close()
	return nil
}

// pgTx binds the table repositories to one pgx transaction.
type pgTx struct {
	accounts     *AccountRepository
	pool         *PoolRepository
	transactions *TransactionRepository
	games        *GameSessionRepository
	topups       *TopUpRepository
	sessions     *SessionRepository
}

func newPgTx(tx pgx.Tx) *pgTx {
	return &pgTx{
		accounts:     NewAccountRepository(tx),
		pool:         NewPoolRepository(tx),
		transactions: NewTransactionRepository(tx),
		games:        NewGameSessionRepository(tx),
		topups:       NewTopUpRepository(tx),
		sessions:     NewSessionRepository(tx),
	}
}

func (t *pgTx) LockAccount(ctx context.Context, id string) (*domain.Account, error) {
	return t.accounts.Lock(ctx, id)
}

func (t *pgTx) AddAccountBalance(ctx context.Context, id string, delta int64) (int64, error) {
	return t.accounts.AddBalance(ctx, id, delta)
}

func (t *pgTx) LockPool(ctx context.Context) (*domain.AdminPool, error) {
	return t.pool.Lock(ctx)
}

func (t *pgTx) AddPoolBalance(ctx context.Context, delta int64) (int64, error) {
	return t.pool.AddBalance(ctx, delta)
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	return t.transactions.Create(ctx, tr)
}

func (t *pgTx) InsertGameSession(ctx context.Context, g *domain.GameSession) error {
	return t.games.Create(ctx, g)
}

func (t *pgTx) InsertTopUp(ctx context.Context, r *domain.TopUpRequest) error {
	return t.topups.Create(ctx, r)
}

func (t *pgTx) LockTopUp(ctx context.Context, id string) (*domain.TopUpRequest, error) {
	return t.topups.Lock(ctx, id)
}

func (t *pgTx) FinishTopUp(ctx context.Context, id string, status domain.TopUpStatus, approvedBy, notes *string) (*domain.TopUpRequest, error) {
	return t.topups.Finish(ctx, id, status, approvedBy, notes)
}

func (t *pgTx) ReplaceSession(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	return t.sessions.Replace(ctx, s)
}

func (t *pgTx) DeleteSession(ctx context.Context, accountID, token string) (*domain.Session, error) {
	return t.sessions.Delete(ctx, accountID, token)
}

func (t *pgTx) SetBanned(ctx context.Context, accountID string, banned bool, reason *string, by string) (domain.AccountChange, error) {
	return t.accounts.SetBanned(ctx, accountID, banned, reason, by)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var (
	_ Store      = (*PgStore)(nil)
	_ ChangeFeed = (*PgStore)(nil)
	_ Tx         = (*pgTx)(nil)
)
