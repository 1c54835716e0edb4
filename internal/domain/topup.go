package domain

import "time"

type TopUpStatus string

const (
	TopUpPending  TopUpStatus = "pending"
	TopUpApproved TopUpStatus = "approved"
	TopUpRejected TopUpStatus = "rejected"
)

func (s TopUpStatus) Valid() bool {
	switch s {
	case TopUpPending, TopUpApproved, TopUpRejected:
		return true
	}
	return false
}

// TopUpRequest moves from pending to exactly one terminal status.
type TopUpRequest struct {
	ID           string      `db:"id" json:"id"`
	AccountID    string      `db:"account_id" json:"account_id"`
	Amount       int64       `db:"amount" json:"amount"`
	Status       TopUpStatus `db:"status" json:"status"`
	PaymentProof *string     `db:"payment_proof" json:"payment_proof,omitempty"`
	ApprovedBy   *string     `db:"approved_by" json:"approved_by,omitempty"`
	AdminNotes   *string     `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// TopUpFilter narrows list queries. Zero values mean no filter.
type TopUpFilter struct {
	AccountID string
	Status    TopUpStatus
	Limit     int
}
