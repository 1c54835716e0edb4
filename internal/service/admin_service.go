package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/events"
	"coin_ledger/internal/repository"
)

// AdminService provides admin statistics and operations
type AdminService struct {
	store  repository.Store
	ledger *Ledger
	audit  *AuditService
	events events.Publisher
}

// NewAdminService creates a new admin service
func NewAdminService(store repository.Store, ledger *Ledger, audit *AuditService, pub events.Publisher) *AdminService {
	return &AdminService{store: store, ledger: ledger, audit: audit, events: pub}
}

// Ban flags the account. Session teardown is driven by the store's change
// feed, not by this call.
func (s *AdminService) Ban(ctx context.Context, adminID, accountID, reason string) (*domain.Account, error) {
	reason = strings.TrimSpace(reason)
	return s.setBanned(ctx, adminID, accountID, true, optional(reason))
}

func (s *AdminService) Unban(ctx context.Context, adminID, accountID string) (*domain.Account, error) {
	return s.setBanned(ctx, adminID, accountID, false, nil)
}

func (s *AdminService) setBanned(ctx context.Context, adminID, accountID string, banned bool, reason *string) (*domain.Account, error) {
	if err := requireAdmin(ctx, s.store, adminID); err != nil {
		return nil, err
	}
	if adminID == accountID {
		return nil, fmt.Errorf("%w: cannot change own ban state", domain.ErrForbidden)
	}

	var change domain.AccountChange
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		change, err = tx.SetBanned(ctx, accountID, banned, reason, adminID)
		return err
	})
	if err != nil {
		observeFailure(ctx, "set_banned", err)
		return nil, err
	}

	action := domain.AuditActionUnban
	if banned {
		action = domain.AuditActionBan
	}
	details := map[string]any{"was_banned": change.OldBanned}
	if reason != nil {
		details["reason"] = *reason
	}
	s.audit.Log(ctx, adminID, action, domain.AuditCategoryAdmin, accountID, details)

	return s.store.GetAccount(ctx, accountID)
}

// FundPool tops up the admin reserve. This is the only external inflow.
func (s *AdminService) FundPool(ctx context.Context, adminID string, amount int64, note string) (*domain.Transaction, error) {
	if err := requireAdmin(ctx, s.store, adminID); err != nil {
		return nil, err
	}
	desc := "pool funding"
	if note = strings.TrimSpace(note); note != "" {
		desc = note
	}
	row, err := s.ledger.FundPool(ctx, amount, desc)
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, adminID, domain.AuditActionPoolFund, domain.AuditCategoryAdmin, "", map[string]any{
		"amount":        amount,
		"balance_after": row.BalanceAfter,
	})
	s.events.Publish(events.Event{
		Type:      events.PoolBalanceChanged,
		ForAdmins: true,
		Data:      events.PoolPayload{Balance: row.BalanceAfter},
		At:        time.Now(),
	})
	return row, nil
}

func (s *AdminService) Pool(ctx context.Context) (*domain.AdminPool, error) {
	return s.store.GetPool(ctx)
}

func (s *AdminService) Account(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.store.GetAccount(ctx, accountID)
}

// Stats returns platform statistics; "today" starts at UTC midnight.
func (s *AdminService) Stats(ctx context.Context) (*domain.Stats, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return s.store.Stats(ctx, today)
}

func (s *AdminService) LedgerAudit(ctx context.Context) (*domain.LedgerAudit, error) {
	return s.ledger.Audit(ctx)
}

func (s *AdminService) AuditLog(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	return s.audit.Recent(ctx, limit)
}
