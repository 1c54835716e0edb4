package repository

import (
	"context"
	"encoding/json"

	"coin_ledger/internal/domain"

	"github.com/google/uuid"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	q querier
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(q querier) *AuditRepository {
	return &AuditRepository{q: q}
}

// Create inserts a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil || log.Details == nil {
		detailsJSON = []byte("{}")
	}

	return r.q.QueryRow(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, category, target_id, details, ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, log.ID, log.ActorID, log.Action, log.Category, log.TargetID, detailsJSON, log.IP).Scan(&log.CreatedAt)
}

// List returns the most recent audit entries
func (r *AuditRepository) List(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, actor_id, action, category, target_id, details, ip, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, ListLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			l           domain.AuditLog
			detailsJSON []byte
		)
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &l.Category, &l.TargetID, &detailsJSON, &l.IP, &l.CreatedAt); err != nil {
			return nil, err
		}
		if len(detailsJSON) > 0 {
			_ = json.Unmarshal(detailsJSON, &l.Details)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
