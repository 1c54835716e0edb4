package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/events"
	"coin_ledger/internal/metrics"
	"coin_ledger/internal/repository"
	"coin_ledger/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TopUpService runs the pending -> approved | rejected workflow.
type TopUpService struct {
	store  repository.Store
	ledger *Ledger
	audit  *AuditService
	events events.Publisher
	min    int64
	max    int64
}

func NewTopUpService(store repository.Store, ledger *Ledger, audit *AuditService, pub events.Publisher, minAmount, maxAmount int64) *TopUpService {
	return &TopUpService{
		store:  store,
		ledger: ledger,
		audit:  audit,
		events: pub,
		min:    minAmount,
		max:    maxAmount,
	}
}

// Submit creates a pending request. No coins move until approval.
func (s *TopUpService) Submit(ctx context.Context, accountID string, amount int64, paymentProof *string) (*domain.TopUpRequest, error) {
	if amount < s.min || amount > s.max {
		return nil, fmt.Errorf("%w: must be between %d and %d", domain.ErrAmountOutOfRange, s.min, s.max)
	}
	if paymentProof != nil {
		if p := strings.TrimSpace(*paymentProof); p == "" {
			paymentProof = nil
		} else {
			paymentProof = &p
		}
	}

	req := &domain.TopUpRequest{
		AccountID:    accountID,
		Amount:       amount,
		Status:       domain.TopUpPending,
		PaymentProof: paymentProof,
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if acc.Banned {
			return domain.ErrAccountBanned
		}
		return tx.InsertTopUp(ctx, req)
	})
	if err != nil {
		observeFailure(ctx, "submit_topup", err)
		return nil, err
	}

	s.audit.Log(ctx, accountID, domain.AuditActionTopUpSubmit, domain.AuditCategoryPayment, req.ID, map[string]any{
		"amount": amount,
	})
	s.publishStatus(req)
	return req, nil
}

// Approve pays the request out of the admin pool. The status flip, the pool
// check and the transfer share one transaction, so a second approver sees
// the request already processed. An empty pool leaves it pending.
func (s *TopUpService) Approve(ctx context.Context, requestID, adminID string, notes *string) (*domain.TopUpRequest, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "topup.approve", trace.WithAttributes(
		attribute.String("topup.id", requestID),
		attribute.String("admin.id", adminID),
	))
	defer span.End()

	var (
		req  *domain.TopUpRequest
		pair *domain.TransactionPair
	)
	if err := requireAdmin(ctx, s.store, adminID); err != nil {
		observeFailure(ctx, "approve_topup", err)
		return nil, err
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		pending, err := tx.LockTopUp(ctx, requestID)
		if err != nil {
			return err
		}
		if pending.Status != domain.TopUpPending {
			return domain.ErrAlreadyProcessed
		}

		pair, err = s.ledger.TransferTx(ctx, tx, domain.PoolParty, domain.AccountParty(pending.AccountID), pending.Amount, Entry{
			Kind:            domain.KindTopUp,
			RelatedEntityID: &pending.ID,
			Description:     "top-up approved",
		})
		if err != nil {
			return err
		}

		req, err = tx.FinishTopUp(ctx, requestID, domain.TopUpApproved, &adminID, cleanNotes(notes))
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.Code(err))
		observeFailure(ctx, "approve_topup", err)
		return nil, err
	}

	metrics.TopUpDecisions.WithLabelValues(string(domain.TopUpApproved)).Inc()
	metrics.LedgerTransfers.WithLabelValues(string(domain.KindTopUp)).Inc()
	metrics.PoolBalance.Set(float64(pair.Debit.BalanceAfter))

	s.audit.Log(ctx, adminID, domain.AuditActionTopUpApprove, domain.AuditCategoryPayment, req.ID, map[string]any{
		"account_id": req.AccountID,
		"amount":     req.Amount,
	})

	now := time.Now()
	s.publishStatus(req)
	s.events.Publish(events.Event{
		Type:      events.BalanceChanged,
		AccountID: req.AccountID,
		Data:      events.BalancePayload{AccountID: req.AccountID, NewBalance: pair.Credit.BalanceAfter},
		At:        now,
	})
	s.events.Publish(events.Event{
		Type:      events.PoolBalanceChanged,
		ForAdmins: true,
		Data:      events.PoolPayload{Balance: pair.Debit.BalanceAfter},
		At:        now,
	})
	return req, nil
}

// DefaultRejectNote is stored when an admin rejects without a note.
const DefaultRejectNote = "rejected by admin"

// Reject closes the request without moving coins.
func (s *TopUpService) Reject(ctx context.Context, requestID, adminID string, notes *string) (*domain.TopUpRequest, error) {
	if err := requireAdmin(ctx, s.store, adminID); err != nil {
		observeFailure(ctx, "reject_topup", err)
		return nil, err
	}
	var req *domain.TopUpRequest
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		pending, err := tx.LockTopUp(ctx, requestID)
		if err != nil {
			return err
		}
		if pending.Status != domain.TopUpPending {
			return domain.ErrAlreadyProcessed
		}
		note := cleanNotes(notes)
		if note == nil {
			n := DefaultRejectNote
			note = &n
		}
		req, err = tx.FinishTopUp(ctx, requestID, domain.TopUpRejected, nil, note)
		return err
	})
	if err != nil {
		observeFailure(ctx, "reject_topup", err)
		return nil, err
	}

	metrics.TopUpDecisions.WithLabelValues(string(domain.TopUpRejected)).Inc()
	s.audit.Log(ctx, adminID, domain.AuditActionTopUpReject, domain.AuditCategoryPayment, req.ID, map[string]any{
		"account_id": req.AccountID,
		"amount":     req.Amount,
	})
	s.publishStatus(req)
	return req, nil
}

func (s *TopUpService) Get(ctx context.Context, requestID string) (*domain.TopUpRequest, error) {
	return s.store.GetTopUp(ctx, requestID)
}

func (s *TopUpService) List(ctx context.Context, f domain.TopUpFilter) ([]*domain.TopUpRequest, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, f.Status)
	}
	f.Limit = repository.ListLimit(f.Limit)
	return s.store.ListTopUps(ctx, f)
}

func (s *TopUpService) publishStatus(req *domain.TopUpRequest) {
	s.events.Publish(events.Event{
		Type:      events.TopUpStatusChanged,
		AccountID: req.AccountID,
		ForAdmins: true,
		Data: events.TopUpPayload{
			RequestID: req.ID,
			AccountID: req.AccountID,
			Amount:    req.Amount,
			Status:    string(req.Status),
		},
		At: time.Now(),
	})
}

// requireAdmin checks the actor's role. It reads committed state and takes
// no locks, so the workflow lock order is unaffected.
func requireAdmin(ctx context.Context, store repository.Store, adminID string) error {
	acc, err := store.GetAccount(ctx, adminID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if !acc.IsAdmin() || acc.Banned {
		return domain.ErrForbidden
	}
	return nil
}

func cleanNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	n := strings.TrimSpace(*notes)
	if n == "" {
		return nil
	}
	return &n
}
