package service

import (
	"context"
	"testing"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/events"
	"coin_ledger/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminBanAndUnban(t *testing.T) {
	f := newFixture(t)
	admin := f.adminAccount(t)
	a := f.account(t, "alice@example.com", 0)
	ctx := context.Background()

	acc, err := f.admin.Ban(ctx, admin.ID, a.ID, "  multi-accounting ")
	require.NoError(t, err)
	assert.True(t, acc.Banned)
	require.NotNil(t, acc.BanReason)
	assert.Equal(t, "multi-accounting", *acc.BanReason)
	require.NotNil(t, acc.BannedBy)
	assert.Equal(t, admin.ID, *acc.BannedBy)
	assert.NotNil(t, acc.BannedAt)

	acc, err = f.admin.Unban(ctx, admin.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, acc.Banned)
	assert.Nil(t, acc.BanReason)

	_, err = f.admin.Ban(ctx, admin.ID, admin.ID, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.admin.Ban(ctx, a.ID, admin.ID, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.admin.Ban(ctx, admin.ID, "8d0f7a4e-0000-4000-8000-000000000000", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	logs, err := f.admin.AuditLog(ctx, 0)
	require.NoError(t, err)
	var actions []string
	for _, l := range logs {
		if l.Category == domain.AuditCategoryAdmin {
			actions = append(actions, l.Action)
		}
	}
	assert.ElementsMatch(t, []string{domain.AuditActionBan, domain.AuditActionUnban}, actions)
}

func TestAdminFundPoolAndStats(t *testing.T) {
	f := newFixture(t)
	admin := f.adminAccount(t)
	a := f.account(t, "alice@example.com", 500)
	ctx := context.Background()

	row, err := f.admin.FundPool(ctx, admin.ID, 2000, "")
	require.NoError(t, err)
	assert.Equal(t, "pool funding", row.Description)
	assert.Equal(t, int64(2000), row.BalanceAfter)

	_, err = f.admin.FundPool(ctx, a.ID, 2000, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	pool := f.bus.ofType(events.PoolBalanceChanged)
	require.Len(t, pool, 1)
	assert.Equal(t, events.PoolPayload{Balance: 2000}, pool[0].Data)

	_, err = f.games(game.NewSequenceSource(0)).PlayRound(ctx, a.ID, domain.GameTypeDice, 100, nil)
	require.NoError(t, err)
	_, err = f.topups.Submit(ctx, a.ID, 300, nil)
	require.NoError(t, err)

	st, err := f.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Accounts)
	assert.Equal(t, int64(400), st.CoinsInAccounts)
	assert.Equal(t, int64(2100), st.PoolBalance)
	assert.Equal(t, int64(1), st.RoundsToday)
	assert.Equal(t, int64(100), st.WageredToday)
	assert.Equal(t, int64(1), st.PendingTopUps)
	assert.Equal(t, int64(300), st.PendingTopUpSum)

	audit, err := f.admin.LedgerAudit(ctx)
	require.NoError(t, err)
	assert.True(t, audit.Conserved)
	assert.True(t, audit.Balanced)
	assert.Equal(t, int64(2500), audit.PoolFunding)
}
