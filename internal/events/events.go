// Package events is the in-process fan-out that feeds connected clients.
package events

import (
	"sync"
	"time"

	"coin_ledger/internal/logger"
	"coin_ledger/internal/metrics"
)

type Type string

const (
	BalanceChanged     Type = "balance_changed"
	AccountBanned      Type = "account_banned"
	TopUpStatusChanged Type = "topup_status_changed"
	PoolBalanceChanged Type = "pool_balance_changed"
	SessionRevoked     Type = "session_revoked"
)

// Event is routed to AccountID's connections, and to admins when
// ForAdmins is set. Session narrows session_revoked to one token.
type Event struct {
	Type      Type      `json:"type"`
	AccountID string    `json:"account_id,omitempty"`
	ForAdmins bool      `json:"-"`
	Session   string    `json:"-"`
	Data      any       `json:"data"`
	At        time.Time `json:"at"`
}

type BalancePayload struct {
	AccountID  string `json:"account_id"`
	NewBalance int64  `json:"new_balance"`
}

type BanPayload struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason,omitempty"`
}

type TopUpPayload struct {
	RequestID string `json:"request_id"`
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type PoolPayload struct {
	Balance int64 `json:"balance"`
}

type RevokedPayload struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason"`
}

// Publisher is what services need from the bus.
type Publisher interface {
	Publish(e Event)
}

// Subscription receives events until Close.
type Subscription struct {
	C    <-chan Event
	c    chan Event
	id   int
	bus  *Bus
	once sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() { s.bus.unsubscribe(s.id) })
}

// Bus never blocks publishers: a full subscriber buffer drops the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*Subscription
	nextID int
	buffer int
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{subs: make(map[int]*Subscription), buffer: buffer}
}

func (b *Bus) Subscribe() *Subscription {
	c := make(chan Event, b.buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	s := &Subscription{C: c, c: c, id: b.nextID, bus: b}
	b.subs[s.id] = s
	b.nextID++
	return s
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(s.c)
	}
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		select {
		case s.c <- e:
		default:
			metrics.EventsDropped.WithLabelValues(string(e.Type)).Inc()
			logger.Warn("event dropped, subscriber full", "type", e.Type, "account_id", e.AccountID)
		}
	}
}

var _ Publisher = (*Bus)(nil)
