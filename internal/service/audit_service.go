package service

import (
	"context"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/logger"
	"coin_ledger/internal/repository"
)

type ipKey struct{}

// ContextWithIP attaches the client address recorded on audit rows.
func ContextWithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

// AuditService handles audit logging
type AuditService struct {
	store repository.Store
}

// NewAuditService creates a new audit service
func NewAuditService(store repository.Store) *AuditService {
	return &AuditService{store: store}
}

// Log creates a new audit log entry. Failures are logged and never fail
// the calling operation.
func (s *AuditService) Log(ctx context.Context, actorID, action, category, targetID string, details map[string]any) {
	entry := &domain.AuditLog{
		ActorID:  optional(actorID),
		Action:   action,
		Category: category,
		TargetID: optional(targetID),
		Details:  details,
	}
	if ip, ok := ctx.Value(ipKey{}).(string); ok {
		entry.IP = ip
	}

	if err := s.store.CreateAudit(ctx, entry); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "actor_id", actorID)
	}
}

// Recent returns the newest audit entries.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	return s.store.ListAudit(ctx, repository.ListLimit(limit))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
