package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/events"
	"coin_ledger/internal/game"
	"coin_ledger/internal/repository"
	"coin_ledger/internal/repository/sqlite"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-0123456789"

// recorder is a Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store    *sqlite.Store
	svc      repository.Store
	bus      *recorder
	ledger   *Ledger
	seed     *Ledger
	audit    *AuditService
	sessions *SessionRegistry
	auth     *AuthService
	topups   *TopUpService
	admin    *AdminService
	accounts *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return newFixtureWithStore(t, s, s)
}

// newFixtureWithStore wires services over store while seeding goes through
// the real sqlite store.
func newFixtureWithStore(t *testing.T, s *sqlite.Store, store repository.Store) *fixture {
	t.Helper()
	bus := &recorder{}
	ledger := NewLedger(store)
	audit := NewAuditService(store)
	sessions := NewSessionRegistry(store, bus, 0)
	auth := NewAuthService(store, sessions, NewTokenIssuer(testSecret, 24*time.Hour), audit)
	auth.hashCost = bcrypt.MinCost

	return &fixture{
		store:    s,
		svc:      store,
		bus:      bus,
		ledger:   ledger,
		seed:     NewLedger(s),
		audit:    audit,
		sessions: sessions,
		auth:     auth,
		topups:   NewTopUpService(store, ledger, audit, bus, 10, 5000),
		admin:    NewAdminService(store, ledger, audit, bus),
		accounts: NewAccountService(store),
	}
}

func (f *fixture) games(rng game.RandomSource) *GameService {
	return NewGameService(f.svc, f.ledger, game.NewFactory(), rng, BetLimits{
		Min: map[domain.GameType]int64{
			domain.GameTypeDice:      50,
			domain.GameTypeRoulette:  150,
			domain.GameTypeSlots:     75,
			domain.GameTypeLottery:   25,
			domain.GameTypeCoinflip:  100,
			domain.GameTypeBlackjack: 200,
		},
		Max: 10000,
	}, f.bus)
}

// account creates a user holding balance coins. The coins are funded into
// the pool and paid out, so the ledger stays conserved.
func (f *fixture) account(t *testing.T, email string, balance int64) *domain.Account {
	t.Helper()
	ctx := context.Background()
	a, err := f.auth.Register(ctx, RegisterInput{Email: email, Password: "password123", Username: email})
	require.NoError(t, err)
	if balance > 0 {
		_, err = f.seed.FundPool(ctx, balance, "seed")
		require.NoError(t, err)
		_, err = f.seed.Transfer(ctx, domain.PoolParty, domain.AccountParty(a.ID), balance, Entry{Kind: domain.KindTopUp, Description: "seed"})
		require.NoError(t, err)
	}
	return a
}

func (f *fixture) adminAccount(t *testing.T) *domain.Account {
	t.Helper()
	a, err := f.auth.CreateAccount(context.Background(), RegisterInput{Email: "admin@example.com", Password: "password123", Username: "admin"}, domain.RoleAdmin)
	require.NoError(t, err)
	return a
}

func (f *fixture) fundPool(t *testing.T, amount int64) {
	t.Helper()
	_, err := f.seed.FundPool(context.Background(), amount, "test")
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	return a.Balance
}

func (f *fixture) pool(t *testing.T) int64 {
	t.Helper()
	p, err := f.store.GetPool(context.Background())
	require.NoError(t, err)
	return p.Balance
}

func (f *fixture) requireConserved(t *testing.T) {
	t.Helper()
	audit, err := f.seed.Audit(context.Background())
	require.NoError(t, err)
	require.True(t, audit.Conserved, "coins not conserved: %+v", audit.LedgerTotals)
	require.True(t, audit.Balanced, "ledger rows out of step with balances: %+v", audit.LedgerTotals)
}

// failingCommit runs every transaction body and then aborts it, the way a
// failed COMMIT would.
type failingCommit struct {
	repository.Store
	err error
}

func (f failingCommit) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return f.Store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return f.err
	})
}
