package repository

import (
	"context"
	"time"

	"coin_ledger/internal/domain"

	"github.com/jackc/pgx/v5"
)

func (s *PgStore) Stats(ctx context.Context, since time.Time) (*domain.Stats, error) {
	var st domain.Stats
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM accounts),
			(SELECT count(*) FROM accounts WHERE is_banned),
			(SELECT COALESCE(sum(balance), 0)::bigint FROM accounts),
			(SELECT balance FROM admin_pool WHERE id = 1),
			(SELECT count(*) FROM game_sessions WHERE created_at >= $1),
			(SELECT COALESCE(sum(coins_spent), 0)::bigint FROM game_sessions WHERE created_at >= $1),
			(SELECT COALESCE(sum(coins_won), 0)::bigint FROM game_sessions WHERE created_at >= $1),
			(SELECT count(*) FROM topup_requests WHERE status = 'pending'),
			(SELECT COALESCE(sum(amount), 0)::bigint FROM topup_requests WHERE status = 'pending'),
			(SELECT COALESCE(sum(amount), 0)::bigint FROM topup_requests WHERE status = 'approved')
	`, since).Scan(
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

// LedgerTotals reads all sums from one snapshot.
func (s *PgStore) LedgerTotals(ctx context.Context) (*domain.LedgerTotals, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var t domain.LedgerTotals
	err = tx.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(sum(balance), 0)::bigint FROM accounts),
			(SELECT balance FROM admin_pool WHERE id = 1),
			(SELECT COALESCE(sum(amount), 0)::bigint FROM transactions WHERE kind = 'pool_funding'),
			(SELECT COALESCE(sum(amount), 0)::bigint FROM transactions WHERE party = 'admin_pool')
	`).Scan(&t.AccountBalances, &t.PoolBalance, &t.PoolFunding, &t.PoolLedgerSum)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT a.id
		FROM accounts a
		LEFT JOIN (
			SELECT account_id, sum(amount) AS total
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &t, nil
}
