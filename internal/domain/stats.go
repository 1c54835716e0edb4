package domain

// Stats - сводка для админки
type Stats struct {
	Accounts         int64 `json:"accounts"`
	BannedAccounts   int64 `json:"banned_accounts"`
	CoinsInAccounts  int64 `json:"coins_in_accounts"`
	PoolBalance      int64 `json:"pool_balance"`
	RoundsToday      int64 `json:"rounds_today"`
	WageredToday     int64 `json:"wagered_today"`
	PaidOutToday     int64 `json:"paid_out_today"`
	PendingTopUps    int64 `json:"pending_topups"`
	PendingTopUpSum  int64 `json:"pending_topup_sum"`
	ApprovedTopUpSum int64 `json:"approved_topup_sum"`
}

// LedgerTotals are the raw sums used to check coin conservation.
type LedgerTotals struct {
	AccountBalances int64 `json:"account_balances"`
	PoolBalance     int64 `json:"pool_balance"`
	PoolFunding     int64 `json:"pool_funding"`
	PoolLedgerSum   int64 `json:"pool_ledger_sum"`
	// Accounts whose balance differs from the sum of their ledger rows.
	Drifted []string `json:"drifted,omitempty"`
}

// LedgerAudit is the verdict over LedgerTotals.
type LedgerAudit struct {
	LedgerTotals
	Conserved bool `json:"conserved"`
	Balanced  bool `json:"balanced"`
}
