package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput - данные регистрации
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	FullName string `json:"full_name" validate:"max=100"`
}

// Identity is an authenticated caller.
type Identity struct {
	Account   *domain.Account
	SessionID string
}

// AuthService handles credentials and login sessions.
type AuthService struct {
	store    repository.Store
	sessions *SessionRegistry
	tokens   *TokenIssuer
	audit    *AuditService
	validate *validator.Validate
	hashCost int
}

func NewAuthService(store repository.Store, sessions *SessionRegistry, tokens *TokenIssuer, audit *AuditService) *AuthService {
	return &AuthService{
		store:    store,
		sessions: sessions,
		tokens:   tokens,
		audit:    audit,
		validate: validator.New(),
		hashCost: bcrypt.DefaultCost,
	}
}

// Register creates a user account with a zero balance.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	return s.CreateAccount(ctx, in, domain.RoleUser)
}

// CreateAccount is Register with an explicit role. It is used by seeding
// tools; the HTTP surface only ever creates users.
func (s *AuthService) CreateAccount(ctx context.Context, in RegisterInput, role domain.Role) (*domain.Account, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role %q", domain.ErrInvalidInput, role)
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc := &domain.Account{
		Email:        in.Email,
		Username:     in.Username,
		FullName:     in.FullName,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, acc.ID, domain.AuditActionRegister, domain.AuditCategoryAuth, acc.ID, nil)
	return acc, nil
}

// Login checks credentials and takes over the account's single session.
// Banned accounts are refused before any session is touched.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	acc, err := s.store.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if acc.Banned {
		return "", nil, bannedError(acc)
	}

	sid := uuid.NewString()
	token, err := s.tokens.Issue(acc.ID, sid)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	var prev *domain.Session
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.LockAccount(ctx, acc.ID)
		if err != nil {
			return err
		}
		if locked.Banned {
			return bannedError(locked)
		}
		acc = locked
		prev, err = s.sessions.AcquireTx(ctx, tx, acc.ID, sid)
		return err
	})
	if err != nil {
		observeFailure(ctx, "login", err)
		return "", nil, err
	}
	s.sessions.Displaced(ctx, prev)

	s.audit.Log(ctx, acc.ID, domain.AuditActionLogin, domain.AuditCategoryAuth, acc.ID, map[string]any{
		"displaced": prev != nil,
	})
	return token, acc, nil
}

// Authenticate resolves a bearer token to its live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Validate(ctx, claims.AccountID, claims.SessionID); err != nil {
		return nil, err
	}
	acc, err := s.store.GetAccount(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return &Identity{Account: acc, SessionID: claims.SessionID}, nil
}

// Logout releases the caller's own session only.
func (s *AuthService) Logout(ctx context.Context, accountID, sessionID string) error {
	if _, err := s.sessions.Release(ctx, accountID, sessionID, RevokedLogout); err != nil {
		return err
	}
	s.audit.Log(ctx, accountID, domain.AuditActionLogout, domain.AuditCategoryAuth, accountID, nil)
	return nil
}

func bannedError(acc *domain.Account) error {
	e := &domain.BannedError{}
	if acc.BanReason != nil {
		e.Reason = *acc.BanReason
	}
	return e
}
