package domain

import "time"

// Session is the single live login of an account. Token holds the opaque
// session id embedded in issued JWTs.
type Session struct {
	AccountID  string    `db:"account_id" json:"account_id"`
	Token      string    `db:"session_token" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	LastSeenAt time.Time `db:"last_seen_at" json:"last_seen_at"`
}
