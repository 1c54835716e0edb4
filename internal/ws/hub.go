package ws

import (
	"context"
	"encoding/json"
	"sync"

	"coin_ledger/internal/events"
	"coin_ledger/internal/logger"
	"coin_ledger/internal/metrics"
)

// Hub routes bus events to the connections of the account they concern
// and, for admin events, to every admin connection.
type Hub struct {
	mu       sync.RWMutex
	accounts map[string]map[*Client]struct{}
	admins   map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		accounts: make(map[string]map[*Client]struct{}),
		admins:   make(map[*Client]struct{}),
	}
}

// Run dispatches until ctx is done or the subscription closes.
func (h *Hub) Run(ctx context.Context, sub *events.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			h.Dispatch(e)
		}
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.accounts[c.AccountID]
	if !ok {
		set = make(map[*Client]struct{})
		h.accounts[c.AccountID] = set
	}
	set[c] = struct{}{}
	if c.Admin {
		h.admins[c] = struct{}{}
	}
	metrics.FeedConnections.Inc()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.accounts[c.AccountID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.accounts, c.AccountID)
	}
	delete(h.admins, c)
	metrics.FeedConnections.Dec()
}

// Connections reports the live connection count for an account.
func (h *Hub) Connections(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.accounts[accountID])
}

func (h *Hub) Dispatch(e events.Event) {
	b, err := json.Marshal(Envelope{Type: string(e.Type), Data: e.Data, At: e.At})
	if err != nil {
		logger.Error("ws marshal event failed", "type", e.Type, "error", err)
		return
	}

	for _, c := range h.targets(e) {
		if !c.offer(b) {
			metrics.EventsDropped.WithLabelValues(string(e.Type)).Inc()
			logger.Warn("ws client buffer full, event dropped", "type", e.Type, "account_id", c.AccountID)
		}
		if e.Type == events.SessionRevoked {
			c.Close()
		}
	}
}

func (h *Hub) targets(e events.Event) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Client]struct{})
	var out []*Client
	add := func(c *Client) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	for c := range h.accounts[e.AccountID] {
		// session_revoked only hits the revoked session's connections
		if e.Type == events.SessionRevoked && e.Session != "" && c.SessionID != e.Session {
			continue
		}
		add(c)
	}
	if e.ForAdmins {
		for c := range h.admins {
			add(c)
		}
	}
	return out
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.accounts {
		for c := range set {
			c.Close()
		}
	}
}
