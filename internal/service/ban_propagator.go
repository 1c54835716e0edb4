package service

import (
	"context"
	"sync"
	"time"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/events"
	"coin_ledger/internal/logger"
	"coin_ledger/internal/metrics"
	"coin_ledger/internal/repository"
)

const (
	defaultResubscribeDelay = time.Second
	forcedLogoutTimeout     = 5 * time.Second
)

// BanPropagator watches committed ban-state writes. A false -> true
// transition is announced at once and the live session is closed after
// the grace delay, once per transition.
type BanPropagator struct {
	feed     repository.ChangeFeed
	sessions *SessionRegistry
	events   events.Publisher
	grace    time.Duration
	retry    time.Duration

	mu      sync.Mutex
	pending map[string]*pendingLogout
	wg      sync.WaitGroup
}

// pendingLogout is one scheduled forced logout. A fired timer only acts
// while its own entry is still the one stored for the account.
type pendingLogout struct {
	timer *time.Timer
}

func NewBanPropagator(feed repository.ChangeFeed, sessions *SessionRegistry, pub events.Publisher, grace time.Duration) *BanPropagator {
	return &BanPropagator{
		feed:     feed,
		sessions: sessions,
		events:   pub,
		grace:    grace,
		retry:    defaultResubscribeDelay,
		pending:  make(map[string]*pendingLogout),
	}
}

// Run consumes the feed until ctx is done, resubscribing when the feed
// drops. Pending logouts scheduled before shutdown still run.
func (p *BanPropagator) Run(ctx context.Context) {
	defer p.wg.Wait()

	for {
		changes, err := p.feed.Changes(ctx)
		if err != nil {
			logger.Error("ban feed subscribe failed", "error", err)
		} else {
			for c := range changes {
				p.Handle(c)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.retry):
			logger.Warn("ban feed closed, resubscribing")
		}
	}
}

// Handle applies one observed change.
func (p *BanPropagator) Handle(c domain.AccountChange) {
	switch {
	case c.BanApplied():
		reason := ""
		if c.BanReason != nil {
			reason = *c.BanReason
		}
		p.events.Publish(events.Event{
			Type:      events.AccountBanned,
			AccountID: c.AccountID,
			ForAdmins: true,
			Data:      events.BanPayload{AccountID: c.AccountID, Reason: reason},
			At:        time.Now(),
		})
		p.schedule(c.AccountID)
	case c.BanLifted():
		p.cancel(c.AccountID)
	default:
		// writes to an already banned account do not reschedule
	}
}

func (p *BanPropagator) schedule(accountID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[accountID]; ok {
		return
	}
	entry := &pendingLogout{}
	p.wg.Add(1)
	// mu is held, so the callback cannot observe entry before it is stored
	entry.timer = time.AfterFunc(p.grace, func() {
		defer p.wg.Done()
		p.forceLogout(accountID, entry)
	})
	p.pending[accountID] = entry
}

func (p *BanPropagator) cancel(accountID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.pending[accountID]
	if !ok {
		return
	}
	delete(p.pending, accountID)
	if entry.timer.Stop() {
		p.wg.Done()
		logger.Info("forced logout cancelled by unban", "account_id", accountID)
	}
}

func (p *BanPropagator) forceLogout(accountID string, entry *pendingLogout) {
	p.mu.Lock()
	if p.pending[accountID] != entry {
		// cancelled by an unban after the timer fired, or replaced by a newer ban
		p.mu.Unlock()
		return
	}
	delete(p.pending, accountID)
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), forcedLogoutTimeout)
	defer cancel()

	released, err := p.sessions.Release(ctx, accountID, "", RevokedBanned)
	if err != nil {
		logger.Error("forced logout failed", "account_id", accountID, "error", err)
		return
	}
	if released {
		metrics.ForcedLogouts.Inc()
		logger.Info("banned account logged out", "account_id", accountID)
	}
}

// Pending reports how many forced logouts are scheduled.
func (p *BanPropagator) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
