package domain

import "time"

// AdminPool is the singleton reserve that funds top-ups and pays out wins.
type AdminPool struct {
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PartyKind - сторона перевода
type PartyKind string

const (
	PartyAccount   PartyKind = "account"
	PartyAdminPool PartyKind = "admin_pool"
)

// Party is a source or destination of a ledger transfer.
type Party struct {
	Kind      PartyKind
	AccountID string
}

func AccountParty(id string) Party {
	return Party{Kind: PartyAccount, AccountID: id}
}

// PoolParty is the admin pool. It is also the house for game rounds.
var PoolParty = Party{Kind: PartyAdminPool}

func (p Party) IsPool() bool {
	return p.Kind == PartyAdminPool
}

func (p Party) String() string {
	if p.IsPool() {
		return string(PartyAdminPool)
	}
	return "account:" + p.AccountID
}
