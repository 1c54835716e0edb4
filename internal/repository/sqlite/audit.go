package sqlite

import (
	"context"
	"encoding/json"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/repository"

	"github.com/google/uuid"
)

func (s *Store) CreateAudit(ctx context.Context, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = s.now()
	}
	details := []byte("{}")
	if log.Details != nil {
		if b, err := json.Marshal(log.Details); err == nil {
			details = b
		}
	}
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, category, target_id, details, ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, log.ID, log.ActorID, log.Action, log.Category, log.TargetID, string(details), log.IP, toMillis(log.CreatedAt))
	return err
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, actor_id, action, category, target_id, details, ip, created_at
		FROM audit_logs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, repository.ListLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			l         domain.AuditLog
			details   string
			createdAt int64
		)
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &l.Category, &l.TargetID, &details, &l.IP, &createdAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(details), &l.Details)
		l.CreatedAt = fromMillis(createdAt)
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
