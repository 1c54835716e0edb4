package domain

import "time"

// TransactionKind - тип движения по счету
type TransactionKind string

const (
	KindTopUp       TransactionKind = "topup"
	KindGameWin     TransactionKind = "game_win"
	KindGameLoss    TransactionKind = "game_loss"
	KindPoolFunding TransactionKind = "pool_funding"
)

// Transaction is an append-only record of one side of a transfer.
// AccountID is nil for rows booked against the admin pool.
type Transaction struct {
	ID              string          `db:"id" json:"id"`
	Seq             int64           `db:"seq" json:"seq"`
	Party           PartyKind       `db:"party" json:"party"`
	AccountID       *string         `db:"account_id" json:"account_id,omitempty"`
	Kind            TransactionKind `db:"kind" json:"kind"`
	Amount          int64           `db:"amount" json:"amount"`
	BalanceAfter    int64           `db:"balance_after" json:"balance_after"`
	RelatedEntityID *string         `db:"related_entity_id" json:"related_entity_id,omitempty"`
	Description     string          `db:"description" json:"description,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// TransactionPair holds both sides of a single transfer.
type TransactionPair struct {
	Debit  *Transaction `json:"debit"`
	Credit *Transaction `json:"credit"`
}
