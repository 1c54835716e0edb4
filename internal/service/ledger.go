package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/logger"
	"coin_ledger/internal/metrics"
	"coin_ledger/internal/repository"
	"coin_ledger/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Entry describes the ledger rows a transfer writes.
type Entry struct {
	Kind            domain.TransactionKind
	RelatedEntityID *string
	Description     string
}

// Ledger moves coins between two parties and appends one Transaction per
// side. It is the only code path that changes a balance.
type Ledger struct {
	store repository.Store
}

func NewLedger(store repository.Store) *Ledger {
	return &Ledger{store: store}
}

// Transfer runs a single transfer in its own store transaction.
func (l *Ledger) Transfer(ctx context.Context, from, to domain.Party, amount int64, e Entry) (*domain.TransactionPair, error) {
	var pair *domain.TransactionPair
	err := l.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		pair, err = l.TransferTx(ctx, tx, from, to, amount, e)
		return err
	})
	if err != nil {
		observeFailure(ctx, "transfer", err)
		return nil, err
	}
	metrics.LedgerTransfers.WithLabelValues(string(e.Kind)).Inc()
	return pair, nil
}

// TransferTx books the transfer inside tx. Parties are locked in the
// canonical order (accounts by id, then the pool) so that any two
// transfers touching the same rows serialize instead of deadlocking.
func (l *Ledger) TransferTx(ctx context.Context, tx repository.Tx, from, to domain.Party, amount int64, e Entry) (*domain.TransactionPair, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ledger.transfer", trace.WithAttributes(
		attribute.String("ledger.from", from.String()),
		attribute.String("ledger.to", to.String()),
		attribute.Int64("ledger.amount", amount),
		attribute.String("ledger.kind", string(e.Kind)),
	))
	defer span.End()

	pair, err := l.transfer(ctx, tx, from, to, amount, e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.Code(err))
		return nil, err
	}
	return pair, nil
}

func (l *Ledger) transfer(ctx context.Context, tx repository.Tx, from, to domain.Party, amount int64, e Entry) (*domain.TransactionPair, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if err := validParty(from); err != nil {
		return nil, err
	}
	if err := validParty(to); err != nil {
		return nil, err
	}
	if from == to {
		return nil, domain.ErrSameParty
	}

	balances, err := lockParties(ctx, tx, from, to)
	if err != nil {
		return nil, err
	}

	if balances[from] < amount {
		if from.IsPool() {
			return nil, domain.ErrInsufficientPool
		}
		return nil, domain.ErrInsufficientFunds
	}

	debitAfter, err := addBalance(ctx, tx, from, -amount)
	if err != nil {
		return nil, err
	}
	creditAfter, err := addBalance(ctx, tx, to, amount)
	if err != nil {
		return nil, err
	}

	debit := ledgerRow(from, -amount, debitAfter, e)
	if err := tx.InsertTransaction(ctx, debit); err != nil {
		return nil, fmt.Errorf("insert debit row: %w", err)
	}
	credit := ledgerRow(to, amount, creditAfter, e)
	if err := tx.InsertTransaction(ctx, credit); err != nil {
		return nil, fmt.Errorf("insert credit row: %w", err)
	}

	return &domain.TransactionPair{Debit: debit, Credit: credit}, nil
}

// FundPool credits the admin pool from outside the system. It is the only
// inflow that changes the coin total.
func (l *Ledger) FundPool(ctx context.Context, amount int64, description string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var row *domain.Transaction
	err := l.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.LockPool(ctx); err != nil {
			return err
		}
		after, err := tx.AddPoolBalance(ctx, amount)
		if err != nil {
			return err
		}
		row = ledgerRow(domain.PoolParty, amount, after, Entry{
			Kind:        domain.KindPoolFunding,
			Description: description,
		})
		return tx.InsertTransaction(ctx, row)
	})
	if err != nil {
		observeFailure(ctx, "fund_pool", err)
		return nil, err
	}
	metrics.LedgerTransfers.WithLabelValues(string(domain.KindPoolFunding)).Inc()
	metrics.PoolBalance.Set(float64(row.BalanceAfter))
	return row, nil
}

// Audit checks conservation against the ledger rows.
func (l *Ledger) Audit(ctx context.Context) (*domain.LedgerAudit, error) {
	totals, err := l.store.LedgerTotals(ctx)
	if err != nil {
		return nil, err
	}
	audit := &domain.LedgerAudit{
		LedgerTotals: *totals,
		Conserved:    totals.AccountBalances+totals.PoolBalance == totals.PoolFunding,
		Balanced:     len(totals.Drifted) == 0 && totals.PoolLedgerSum == totals.PoolBalance,
	}
	if !audit.Conserved || !audit.Balanced {
		logger.WithContext(ctx).Error("ledger audit failed",
			"account_balances", totals.AccountBalances,
			"pool_balance", totals.PoolBalance,
			"pool_funding", totals.PoolFunding,
			"pool_ledger_sum", totals.PoolLedgerSum,
			"drifted", totals.Drifted,
		)
	}
	return audit, nil
}

func validParty(p domain.Party) error {
	switch p.Kind {
	case domain.PartyAdminPool:
		return nil
	case domain.PartyAccount:
		if p.AccountID != "" {
			return nil
		}
	}
	return domain.ErrUnknownParty
}

// lockParties takes row locks and returns the balances seen under them.
func lockParties(ctx context.Context, tx repository.Tx, parties ...domain.Party) (map[domain.Party]int64, error) {
	balances := make(map[domain.Party]int64, len(parties))

	var ids []string
	pool := false
	for _, p := range parties {
		if p.IsPool() {
			pool = true
			continue
		}
		ids = append(ids, p.AccountID)
	}
	sort.Strings(ids)

	for _, id := range ids {
		a, err := tx.LockAccount(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrUnknownParty
			}
			return nil, fmt.Errorf("lock account: %w", err)
		}
		balances[domain.AccountParty(id)] = a.Balance
	}
	if pool {
		p, err := tx.LockPool(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrUnknownParty
			}
			return nil, fmt.Errorf("lock pool: %w", err)
		}
		balances[domain.PoolParty] = p.Balance
	}
	return balances, nil
}

func addBalance(ctx context.Context, tx repository.Tx, p domain.Party, delta int64) (int64, error) {
	if p.IsPool() {
		return tx.AddPoolBalance(ctx, delta)
	}
	return tx.AddAccountBalance(ctx, p.AccountID, delta)
}

func ledgerRow(p domain.Party, amount, after int64, e Entry) *domain.Transaction {
	t := &domain.Transaction{
		Party:           p.Kind,
		Kind:            e.Kind,
		Amount:          amount,
		BalanceAfter:    after,
		RelatedEntityID: e.RelatedEntityID,
		Description:     e.Description,
	}
	if !p.IsPool() {
		id := p.AccountID
		t.AccountID = &id
	}
	return t
}

// observeFailure counts a failed operation and logs integrity faults.
// Validation and state-conflict errors are expected and stay at debug.
func observeFailure(ctx context.Context, op string, err error) {
	code := domain.Code(err)
	metrics.OperationFailures.WithLabelValues(op, code).Inc()
	if domain.IsExpected(err) {
		logger.WithContext(ctx).Debug("operation rejected", "operation", op, "code", code)
		return
	}
	logger.WithContext(ctx).Error("operation failed", "operation", op, "error", err)
}
