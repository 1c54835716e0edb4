package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        string         `db:"id" json:"id"`
	ActorID   *string        `db:"actor_id" json:"actor_id,omitempty"`
	Action    string         `db:"action" json:"action"`
	Category  string         `db:"category" json:"category"`
	TargetID  *string        `db:"target_id" json:"target_id,omitempty"`
	Details   map[string]any `db:"details" json:"details,omitempty"`
	IP        string         `db:"ip" json:"ip,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth    = "auth"
	AuditCategoryPayment = "payment"
	AuditCategoryAdmin   = "admin"
)

// Audit actions
const (
	AuditActionRegister = "register"
	AuditActionLogin    = "login"
	AuditActionLogout   = "logout"

	AuditActionTopUpSubmit  = "topup_submit"
	AuditActionTopUpApprove = "topup_approve"
	AuditActionTopUpReject  = "topup_reject"

	AuditActionBan      = "ban"
	AuditActionUnban    = "unban"
	AuditActionPoolFund = "pool_fund"
)
