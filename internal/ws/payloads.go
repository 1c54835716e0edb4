package ws

import "time"

// client → server
type Inbound struct {
	Type string `json:"type"`
}

// server → client. Event types from the bus are sent as is.
type Envelope struct {
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at,omitempty"`
}

type ReadyPayload struct {
	AccountID string `json:"account_id"`
	Admin     bool   `json:"admin"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
