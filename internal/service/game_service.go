package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/events"
	"coin_ledger/internal/game"
	"coin_ledger/internal/metrics"
	"coin_ledger/internal/repository"
	"coin_ledger/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BetLimits bound a stake per game.
type BetLimits struct {
	Min map[domain.GameType]int64
	Max int64
}

// GameInfo is one catalog entry.
type GameInfo struct {
	Type       domain.GameType `json:"type"`
	MinBet     int64           `json:"min_bet"`
	MaxBet     int64           `json:"max_bet"`
	Multiplier int64           `json:"multiplier"`
	Rules      string          `json:"rules"`
}

// GameService plays and settles single rounds against the house.
type GameService struct {
	store  repository.Store
	ledger *Ledger
	games  *game.Factory
	rng    game.RandomSource
	limits BetLimits
	events events.Publisher
}

func NewGameService(store repository.Store, ledger *Ledger, games *game.Factory, rng game.RandomSource, limits BetLimits, pub events.Publisher) *GameService {
	return &GameService{
		store:  store,
		ledger: ledger,
		games:  games,
		rng:    rng,
		limits: limits,
		events: pub,
	}
}

// Catalog lists the playable games with their limits.
func (s *GameService) Catalog() []GameInfo {
	types := s.games.Types()
	out := make([]GameInfo, 0, len(types))
	for _, t := range types {
		e, _ := s.games.Get(t)
		out = append(out, GameInfo{
			Type:       t,
			MinBet:     s.limits.Min[t],
			MaxBet:     s.limits.Max,
			Multiplier: e.Multiplier(),
			Rules:      e.Rules(),
		})
	}
	return out
}

// PlayRound draws an outcome and settles it. The stake, the payout and the
// GameSession row commit together or not at all.
func (s *GameService) PlayRound(ctx context.Context, accountID string, gameType domain.GameType, bet int64, choice *string) (*domain.RoundResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "game.play_round", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.String("game.type", string(gameType)),
		attribute.Int64("game.bet", bet),
	))
	defer span.End()

	res, err := s.playRound(ctx, accountID, gameType, bet, choice)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.Code(err))
		observeFailure(ctx, "play_round", err)
		return nil, err
	}

	result := "loss"
	if res.Won {
		result = "win"
	}
	metrics.RoundsTotal.WithLabelValues(string(gameType), result).Inc()
	metrics.CoinsWagered.WithLabelValues(string(gameType)).Add(float64(res.CoinsSpent))
	metrics.CoinsPaidOut.WithLabelValues(string(gameType)).Add(float64(res.CoinsWon))
	return res, nil
}

func (s *GameService) playRound(ctx context.Context, accountID string, gameType domain.GameType, bet int64, choice *string) (*domain.RoundResult, error) {
	engine, err := s.games.Get(gameType)
	if err != nil {
		return nil, err
	}
	if err := s.validateBet(gameType, bet); err != nil {
		return nil, err
	}
	if err := engine.ValidateChoice(choice); err != nil {
		return nil, err
	}

	// Быстрая проверка до транзакции; под блокировкой проверяем еще раз
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnknownParty
		}
		return nil, err
	}
	if err := checkPlayable(acc, bet); err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	var (
		res      *domain.RoundResult
		poolLeft int64
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrUnknownParty
			}
			return err
		}
		if err := checkPlayable(acc, bet); err != nil {
			return err
		}

		// the draw happens after the stake is locked and before anything is written
		outcome, err := engine.Play(s.rng, choice)
		if err != nil {
			return fmt.Errorf("draw %s: %w", gameType, err)
		}

		kind := domain.KindGameLoss
		if outcome.Won {
			kind = domain.KindGameWin
		}
		entry := Entry{Kind: kind, RelatedEntityID: &sessionID, Description: string(gameType) + " stake"}

		player := domain.AccountParty(accountID)
		stake, err := s.ledger.TransferTx(ctx, tx, player, domain.PoolParty, bet, entry)
		if err != nil {
			return err
		}
		newBalance := stake.Debit.BalanceAfter
		poolLeft = stake.Credit.BalanceAfter

		won := outcome.Payout(bet)
		if won > 0 {
			entry.Description = string(gameType) + " payout"
			payout, err := s.ledger.TransferTx(ctx, tx, domain.PoolParty, player, won, entry)
			if err != nil {
				return err
			}
			newBalance = payout.Credit.BalanceAfter
			poolLeft = payout.Debit.BalanceAfter
		}

		gs := &domain.GameSession{
			ID:         sessionID,
			AccountID:  accountID,
			GameType:   gameType,
			Outcome:    outcome.Description,
			Choice:     choice,
			CoinsSpent: bet,
			CoinsWon:   won,
		}
		if err := tx.InsertGameSession(ctx, gs); err != nil {
			return fmt.Errorf("insert game session: %w", err)
		}

		res = &domain.RoundResult{
			SessionID:  sessionID,
			GameType:   gameType,
			Outcome:    outcome.Description,
			Won:        outcome.Won,
			CoinsSpent: bet,
			CoinsWon:   won,
			Net:        won - bet,
			NewBalance: newBalance,
			Details:    outcome.Details,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PoolBalance.Set(float64(poolLeft))
	now := time.Now()
	s.events.Publish(events.Event{
		Type:      events.BalanceChanged,
		AccountID: accountID,
		Data:      events.BalancePayload{AccountID: accountID, NewBalance: res.NewBalance},
		At:        now,
	})
	s.events.Publish(events.Event{
		Type:      events.PoolBalanceChanged,
		ForAdmins: true,
		Data:      events.PoolPayload{Balance: poolLeft},
		At:        now,
	})
	return res, nil
}

func (s *GameService) validateBet(t domain.GameType, bet int64) error {
	if bet <= 0 {
		return domain.ErrInvalidBet
	}
	if minBet := s.limits.Min[t]; bet < minBet {
		return fmt.Errorf("%w: minimum for %s is %d", domain.ErrInvalidBet, t, minBet)
	}
	if s.limits.Max > 0 && bet > s.limits.Max {
		return fmt.Errorf("%w: maximum is %d", domain.ErrInvalidBet, s.limits.Max)
	}
	return nil
}

func checkPlayable(acc *domain.Account, bet int64) error {
	if acc.Banned {
		return domain.ErrAccountBanned
	}
	if acc.Balance < bet {
		return domain.ErrInsufficientFunds
	}
	return nil
}

// History returns the account's most recent rounds.
func (s *GameService) History(ctx context.Context, accountID string, limit int) ([]*domain.GameSession, int64, error) {
	list, err := s.store.ListGameSessions(ctx, accountID, repository.ListLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountGameSessions(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
