package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferValidation(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "alice@example.com", 100)
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to domain.Party
		amount   int64
		want     error
	}{
		{"zero amount", domain.AccountParty(a.ID), domain.PoolParty, 0, domain.ErrInvalidAmount},
		{"negative amount", domain.AccountParty(a.ID), domain.PoolParty, -5, domain.ErrInvalidAmount},
		{"same party", domain.AccountParty(a.ID), domain.AccountParty(a.ID), 10, domain.ErrSameParty},
		{"unknown account", domain.AccountParty("2b9c5a0e-0000-4000-8000-000000000000"), domain.PoolParty, 10, domain.ErrUnknownParty},
		{"empty account id", domain.Party{Kind: domain.PartyAccount}, domain.PoolParty, 10, domain.ErrUnknownParty},
		{"bad kind", domain.Party{Kind: "bank"}, domain.PoolParty, 10, domain.ErrUnknownParty},
		{"insufficient funds", domain.AccountParty(a.ID), domain.PoolParty, 101, domain.ErrInsufficientFunds},
		{"insufficient pool", domain.PoolParty, domain.AccountParty(a.ID), 1, domain.ErrInsufficientPool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Transfer(ctx, tt.from, tt.to, tt.amount, Entry{Kind: domain.KindGameLoss})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, int64(100), f.balance(t, a.ID))
	f.requireConserved(t)
}

func TestTransferWritesBothSides(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "alice@example.com", 300)
	ctx := context.Background()

	ref := "round-1"
	pair, err := f.ledger.Transfer(ctx, domain.AccountParty(a.ID), domain.PoolParty, 120, Entry{
		Kind:            domain.KindGameLoss,
		RelatedEntityID: &ref,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PartyAccount, pair.Debit.Party)
	assert.Equal(t, int64(-120), pair.Debit.Amount)
	assert.Equal(t, int64(180), pair.Debit.BalanceAfter)
	require.NotNil(t, pair.Debit.AccountID)
	assert.Equal(t, a.ID, *pair.Debit.AccountID)

	assert.Equal(t, domain.PartyAdminPool, pair.Credit.Party)
	assert.Nil(t, pair.Credit.AccountID)
	assert.Equal(t, int64(120), pair.Credit.Amount)
	assert.Equal(t, int64(120), pair.Credit.BalanceAfter)
	assert.Greater(t, pair.Credit.Seq, pair.Debit.Seq)

	assert.Equal(t, int64(180), f.balance(t, a.ID))
	assert.Equal(t, int64(120), f.pool(t))
	f.requireConserved(t)
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "alice@example.com", 1000)
	b := f.account(t, "bob@example.com", 1000)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := domain.AccountParty(a.ID), domain.AccountParty(b.ID)
			if i%3 == 0 {
				from, to = to, from
			}
			_, err := f.ledger.Transfer(ctx, from, to, 150, Entry{Kind: domain.KindGameLoss})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		}(i)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, f.balance(t, a.ID), int64(0))
	assert.GreaterOrEqual(t, f.balance(t, b.ID), int64(0))
	assert.Equal(t, int64(2000), f.balance(t, a.ID)+f.balance(t, b.ID))
	assert.Positive(t, success)
	f.requireConserved(t)
}

func TestFundPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.LedgerTransfers.WithLabelValues(string(domain.KindPoolFunding)))
	row, err := f.ledger.FundPool(ctx, 750, "initial reserve")
	require.NoError(t, err)
	assert.Equal(t, domain.KindPoolFunding, row.Kind)
	assert.Equal(t, domain.PartyAdminPool, row.Party)
	assert.Equal(t, int64(750), row.BalanceAfter)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LedgerTransfers.WithLabelValues(string(domain.KindPoolFunding))))

	_, err = f.ledger.FundPool(ctx, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	assert.Equal(t, int64(750), f.pool(t))
	f.requireConserved(t)
}

func TestTransferCommitFailureLeavesNoTrace(t *testing.T) {
	base := newFixture(t)
	f := newFixtureWithStore(t, base.store, failingCommit{Store: base.store, err: errors.New("disk I/O error")})
	a := f.account(t, "alice@example.com", 400)
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.OperationFailures.WithLabelValues("transfer", "internal_error"))
	_, err := f.ledger.Transfer(ctx, domain.AccountParty(a.ID), domain.PoolParty, 100, Entry{Kind: domain.KindGameLoss})
	require.Error(t, err)
	assert.Equal(t, "internal_error", domain.Code(err))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OperationFailures.WithLabelValues("transfer", "internal_error")))

	assert.Equal(t, int64(400), f.balance(t, a.ID))
	txs, err := f.store.ListTransactions(ctx, a.ID, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1, "only the seed row")
	f.requireConserved(t)
}

func TestAuditDetectsForeignWrite(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "alice@example.com", 100)
	ctx := context.Background()

	audit, err := f.ledger.Audit(ctx)
	require.NoError(t, err)
	assert.True(t, audit.Conserved)
	assert.True(t, audit.Balanced)

	// a balance change that bypasses the ledger
	_, err = f.store.DB().ExecContext(ctx, `UPDATE accounts SET balance = balance + 5 WHERE id = ?`, a.ID)
	require.NoError(t, err)

	audit, err = f.ledger.Audit(ctx)
	require.NoError(t, err)
	assert.False(t, audit.Conserved)
	assert.False(t, audit.Balanced)
	assert.Equal(t, []string{a.ID}, audit.Drifted)
}
