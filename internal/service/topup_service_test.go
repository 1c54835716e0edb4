package service

import (
	"context"
	"sync"
	"testing"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRange(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "alice@example.com", 0)
	ctx := context.Background()

	for _, amount := range []int64{0, 9, 5001} {
		_, err := f.topups.Submit(ctx, a.ID, amount, nil)
		assert.ErrorIs(t, err, domain.ErrAmountOutOfRange, "amount %d", amount)
		assert.Equal(t, "amount_out_of_range", domain.Code(err))
	}

	req, err := f.topups.Submit(ctx, a.ID, 10, strPtr("  receipt-42 "))
	require.NoError(t, err)
	assert.Equal(t, domain.TopUpPending, req.Status)
	require.NotNil(t, req.PaymentProof)
	assert.Equal(t, "receipt-42", *req.PaymentProof)

	list, err := f.accounts.TopUps(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, req.ID, list[0].ID)
	assert.Equal(t, int64(0), f.balance(t, a.ID), "submitting moves no coins")
}

func TestApproveBeyondPoolStaysPending(t *testing.T) {
	f := newFixture(t)
	admin := f.adminAccount(t)
	a := f.account(t, "alice@example.com", 0)
	f.fundPool(t, 1000)
	ctx := context.Background()

	req, err := f.topups.Submit(ctx, a.ID, 1500, nil)
	require.NoError(t, err)

	_, err = f.topups.Approve(ctx, req.ID, admin.ID, nil)
	require.ErrorIs(t, err, domain.ErrInsufficientPool)
	assert.Equal(t, "insufficient_pool_funds", domain.Code(err))

	got, err := f.topups.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopUpPending, got.Status)
	assert.Nil(t, got.ApprovedBy)
	assert.Equal(t, int64(1000), f.pool(t))
	assert.Equal(t, int64(0), f.balance(t, a.ID))

	// пополняем пул и повторяем
	f.fundPool(t, 500)
	got, err = f.topups.Approve(ctx, req.ID, admin.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TopUpApproved, got.Status)
	assert.Equal(t, int64(0), f.pool(t))
	assert.Equal(t, int64(1500), f.balance(t, a.ID))
	f.requireConserved(t)
}

func TestApproveOnce(t *testing.T) {
	f := newFixture(t)
	admin := f.adminAccount(t)
	a := f.account(t, "alice@example.com", 0)
	f.fundPool(t, 1000)
	ctx := context.Background()

	req, err := f.topups.Submit(ctx, a.ID, 200, nil)
	require.NoError(t, err)

	got, err := f.topups.Approve(ctx, req.ID, admin.ID, strPtr("paid by card"))
	require.NoError(t, err)
	assert.Equal(t, domain.TopUpApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, admin.ID, *got.ApprovedBy)
	require.NotNil(t, got.AdminNotes)
	assert.Equal(t, "paid by card", *got.AdminNotes)
	assert.Equal(t, int64(800), f.pool(t))
	assert.Equal(t, int64(200), f.balance(t, a.ID))

	_, err = f.topups.Approve(ctx, req.ID, admin.ID, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	_, err = f.topups.Reject(ctx, req.ID, admin.ID, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	assert.Equal(t, int64(800), f.pool(t))
	assert.Equal(t, int64(200), f.balance(t, a.ID))

	txs, err := f.store.ListTransactions(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.KindTopUp, txs[0].Kind)
	require.NotNil(t, txs[0].RelatedEntityID)
	assert.Equal(t, req.ID, *txs[0].RelatedEntityID)

	statuses := f.bus.ofType(events.TopUpStatusChanged)
	require.Len(t, statuses, 2)
	assert.Equal(t, "approved", statuses[1].Data.(events.TopUpPayload).Status)
	assert.True(t, statuses[1].ForAdmins)
	f.requireConserved(t)
}

func TestConcurrentApprovalsPayOnce(t *testing.T) {
	f := newFixture(t)
	admin := f.adminAccount(t)
	a := f.account(t, "alice@example.com", 0)
	f.fundPool(t, 1000)
	ctx := context.Background()

	req, err := f.topups.Submit(ctx, a.ID, 300, nil)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.topups.Approve(ctx, req.ID, admin.ID, nil)
			if err == nil {
				mu.Lock()
				approved++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, approved)
	assert.Equal(t, int64(700), f.pool(t))
	assert.Equal(t, int64(300), f.balance(t, a.ID))
	f.requireConserved(t)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	admin := f.adminAccount(t)
	a := f.account(t, "alice@example.com", 0)
	f.fundPool(t, 1000)
	ctx := context.Background()

	req, err := f.topups.Submit(ctx, a.ID, 400, nil)
	require.NoError(t, err)

	got, err := f.topups.Reject(ctx, req.ID, admin.ID, strPtr("no payment found"))
	require.NoError(t, err)
	assert.Equal(t, domain.TopUpRejected, got.Status)
	assert.Nil(t, got.ApprovedBy)
	require.NotNil(t, got.AdminNotes)
	assert.Equal(t, "no payment found", *got.AdminNotes)

	_, err = f.topups.Approve(ctx, req.ID, admin.ID, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	assert.Equal(t, int64(1000), f.pool(t))
	assert.Equal(t, int64(0), f.balance(t, a.ID))

	pending, err := f.topups.List(ctx, domain.TopUpFilter{Status: domain.TopUpPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRejectWithoutNoteGetsDefault(t *testing.T) {
	f := newFixture(t)
	admin := f.adminAccount(t)
	a := f.account(t, "alice@example.com", 0)
	ctx := context.Background()

	req, err := f.topups.Submit(ctx, a.ID, 400, nil)
	require.NoError(t, err)

	got, err := f.topups.Reject(ctx, req.ID, admin.ID, strPtr("   "))
	require.NoError(t, err)
	require.NotNil(t, got.AdminNotes)
	assert.Equal(t, DefaultRejectNote, *got.AdminNotes)

	stored, err := f.topups.Get(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AdminNotes)
	assert.Equal(t, DefaultRejectNote, *stored.AdminNotes)
}

func TestTopUpRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "alice@example.com", 0)
	b := f.account(t, "bob@example.com", 0)
	f.fundPool(t, 1000)
	ctx := context.Background()

	req, err := f.topups.Submit(ctx, a.ID, 100, nil)
	require.NoError(t, err)

	_, err = f.topups.Approve(ctx, req.ID, b.ID, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.topups.Approve(ctx, req.ID, a.ID, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.topups.Reject(ctx, req.ID, b.ID, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := f.topups.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopUpPending, got.Status)
}

func TestBannedAccountCannotSubmit(t *testing.T) {
	f := newFixture(t)
	admin := f.adminAccount(t)
	a := f.account(t, "alice@example.com", 0)
	ctx := context.Background()

	_, err := f.admin.Ban(ctx, admin.ID, a.ID, "")
	require.NoError(t, err)
	_, err = f.topups.Submit(ctx, a.ID, 100, nil)
	assert.ErrorIs(t, err, domain.ErrAccountBanned)
}
