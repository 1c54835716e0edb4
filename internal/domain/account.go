package domain

import "time"

// Role - роль аккаунта
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is the durable identity and coin balance of a player or admin.
// Balance is only ever changed by the ledger.
type Account struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	FullName     string     `db:"full_name" json:"full_name,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         Role       `db:"role" json:"role"`
	Balance      int64      `db:"balance" json:"balance"`
	Banned       bool       `db:"is_banned" json:"banned"`
	BanReason    *string    `db:"ban_reason" json:"ban_reason,omitempty"`
	BannedAt     *time.Time `db:"banned_at" json:"banned_at,omitempty"`
	BannedBy     *string    `db:"banned_by" json:"banned_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// AccountChange is one observed write to an account's ban state.
type AccountChange struct {
	AccountID string  `json:"account_id"`
	OldBanned bool    `json:"old_banned"`
	NewBanned bool    `json:"new_banned"`
	BanReason *string `json:"ban_reason,omitempty"`
}

// BanApplied reports a false -> true transition.
func (c AccountChange) BanApplied() bool {
	return !c.OldBanned && c.NewBanned
}

// BanLifted reports a true -> false transition.
func (c AccountChange) BanLifted() bool {
	return c.OldBanned && !c.NewBanned
}
