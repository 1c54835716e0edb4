package sqlite

import (
	"context"
	"time"

	"coin_ledger/internal/domain"
)

func (s *Store) Stats(ctx context.Context, since time.Time) (*domain.Stats, error) {
	var st domain.Stats
	ts := toMillis(since)
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(1) FROM accounts),
			(SELECT COUNT(1) FROM accounts WHERE is_banned = 1),
			(SELECT COALESCE(SUM(balance), 0) FROM accounts),
			(SELECT balance FROM admin_pool WHERE id = 1),
			(SELECT COUNT(1) FROM game_sessions WHERE created_at >= ?),
			(SELECT COALESCE(SUM(coins_spent), 0) FROM game_sessions WHERE created_at >= ?),
			(SELECT COALESCE(SUM(coins_won), 0) FROM game_sessions WHERE created_at >= ?),
			(SELECT COUNT(1) FROM topup_requests WHERE status = 'pending'),
			(SELECT COALESCE(SUM(amount), 0) FROM topup_requests WHERE status = 'pending'),
			(SELECT COALESCE(SUM(amount), 0) FROM topup_requests WHERE status = 'approved')
	`, ts, ts, ts).Scan(
		&st.Accounts,
		&st.BannedAccounts,
		&st.CoinsInAccounts,
		&st.PoolBalance,
		&st.RoundsToday,
		&st.WageredToday,
		&st.PaidOutToday,
		&st.PendingTopUps,
		&st.PendingTopUpSum,
		&st.ApprovedTopUpSum,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// LedgerTotals runs inside one transaction so every sum sees the same state.
func (s *Store) LedgerTotals(ctx context.Context) (*domain.LedgerTotals, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var t domain.LedgerTotals
	err = tx.QueryRowContext(ctx, `
		SELECT
			(SELECT COALESCE(SUM(balance), 0) FROM accounts),
			(SELECT balance FROM admin_pool WHERE id = 1),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE kind = 'pool_funding'),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE party = 'admin_pool')
	`).Scan(&t.AccountBalances, &t.PoolBalance, &t.PoolFunding, &t.PoolLedgerSum)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT a.id
		FROM accounts a
		LEFT JOIN (
			SELECT account_id, SUM(amount) AS total
			FROM transactions
			WHERE party = 'account'
			GROUP BY account_id
		) l ON l.account_id = a.id
		WHERE a.balance <> COALESCE(l.total, 0)
		ORDER BY a.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		t.Drifted = append(t.Drifted, id)
	}
	return &t, rows.Err()
}
