package repository

import (
	"context"

	"coin_ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type GameSessionRepository struct {
	q querier
}

func NewGameSessionRepository(q querier) *GameSessionRepository {
	return &GameSessionRepository{q: q}
}

// Create записывает раунд; id приходит от процессора раундов
func (r *GameSessionRepository) Create(ctx context.Context, g *domain.GameSession) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return r.q.QueryRow(ctx, `
		INSERT INTO game_sessions (id, account_id, game_type, outcome, choice, coins_spent, coins_won)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, g.ID, g.AccountID, g.GameType, g.Outcome, g.Choice, g.CoinsSpent, g.CoinsWon).Scan(&g.CreatedAt)
}

func (r *GameSessionRepository) GetByAccountID(ctx context.Context, accountID string, limit int) ([]*domain.GameSession, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, account_id, game_type, outcome, choice, coins_spent, coins_won, created_at
		FROM game_sessions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, ListLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanGameSessions(rows)
}

func (r *GameSessionRepository) CountByAccountID(ctx context.Context, accountID string) (int64, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return 0, nil
	}
	var n int64
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM game_sessions WHERE account_id = $1`, accountID).Scan(&n)
	return n, err
}

func scanGameSessions(rows pgx.Rows) ([]*domain.GameSession, error) {
	var result []*domain.GameSession
	for rows.Next() {
		var g domain.GameSession
		if err := rows.Scan(&g.ID, &g.AccountID, &g.GameType, &g.Outcome, &g.Choice, &g.CoinsSpent, &g.CoinsWon, &g.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &g)
	}
	return result, rows.Err()
}
