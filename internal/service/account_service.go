package service

import (
	"context"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/repository"
)

// AccountService is the read side of an account.
type AccountService struct {
	store repository.Store
}

func NewAccountService(store repository.Store) *AccountService {
	return &AccountService{store: store}
}

func (s *AccountService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.store.GetAccount(ctx, accountID)
}

// Transactions returns account-side ledger rows, newest first.
func (s *AccountService) Transactions(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error) {
	return s.store.ListTransactions(ctx, accountID, repository.ListLimit(limit))
}

func (s *AccountService) TopUps(ctx context.Context, accountID string, limit int) ([]*domain.TopUpRequest, error) {
	return s.store.ListTopUps(ctx, domain.TopUpFilter{AccountID: accountID, Limit: repository.ListLimit(limit)})
}
