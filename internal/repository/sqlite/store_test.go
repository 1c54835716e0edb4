package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createAccount(t *testing.T, s *Store, email string) *domain.Account {
	t.Helper()
	a := &domain.Account{Email: email, Username: email, PasswordHash: "x"}
	require.NoError(t, s.CreateAccount(context.Background(), a))
	return a
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	pool, err := s.GetPool(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), pool.Balance)
}

func TestCreateAccount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := createAccount(t, s, "Alice@Example.com")
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, domain.RoleUser, a.Role)

	got, err := s.GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, int64(0), got.Balance)
	assert.False(t, got.Banned)

	err = s.CreateAccount(ctx, &domain.Account{Email: "alice@example.com", Username: "dup", PasswordHash: "x"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = s.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddBalanceIsConditional(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := createAccount(t, s, "a@example.com")

	err := s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		bal, err := tx.AddAccountBalance(ctx, a.ID, 50)
		require.NoError(t, err)
		assert.Equal(t, int64(50), bal)

		_, err = tx.AddAccountBalance(ctx, a.ID, -51)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

		_, err = tx.AddAccountBalance(ctx, "missing", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = tx.AddPoolBalance(ctx, -1)
		assert.ErrorIs(t, err, domain.ErrInsufficientPool)
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.Balance)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := createAccount(t, s, "a@example.com")
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.AddAccountBalance(ctx, a.ID, 100); err != nil {
			return err
		}
		aid := a.ID
		if err := tx.InsertTransaction(ctx, &domain.Transaction{
			Party: domain.PartyAccount, AccountID: &aid, Kind: domain.KindTopUp, Amount: 100, BalanceAfter: 100,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Balance)

	txs, err := s.ListTransactions(ctx, a.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestTransactionsOrderedBySeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := createAccount(t, s, "a@example.com")
	aid := a.ID

	for i := int64(1); i <= 3; i++ {
		err := s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return tx.InsertTransaction(ctx, &domain.Transaction{
				Party: domain.PartyAccount, AccountID: &aid, Kind: domain.KindTopUp, Amount: i, BalanceAfter: i,
			})
		})
		require.NoError(t, err)
	}

	txs, err := s.ListTransactions(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, int64(3), txs[0].Amount)
	assert.Greater(t, txs[0].Seq, txs[1].Seq)
	assert.Greater(t, txs[1].Seq, txs[2].Seq)
}

func TestFinishTopUpOnlyOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := createAccount(t, s, "a@example.com")
	admin := createAccount(t, s, "admin@example.com")

	req := &domain.TopUpRequest{AccountID: a.ID, Amount: 200}
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.InsertTopUp(ctx, req)
	}))

	adminID := admin.ID
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		r, err := tx.FinishTopUp(ctx, req.ID, domain.TopUpApproved, &adminID, nil)
		if err != nil {
			return err
		}
		assert.Equal(t, domain.TopUpApproved, r.Status)
		return nil
	}))

	err := s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.FinishTopUp(ctx, req.ID, domain.TopUpRejected, nil, nil)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	err = s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.FinishTopUp(ctx, "missing", domain.TopUpRejected, nil, nil)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.GetTopUp(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopUpApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, admin.ID, *got.ApprovedBy)

	pending, err := s.ListTopUps(ctx, domain.TopUpFilter{Status: domain.TopUpPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReplaceSessionKeepsOneRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := createAccount(t, s, "a@example.com")
	now := time.Now().UTC()

	var displaced []*domain.Session
	for _, tok := range []string{"t1", "t2", "t3"} {
		tok := tok
		require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			prev, err := tx.ReplaceSession(ctx, &domain.Session{AccountID: a.ID, Token: tok, CreatedAt: now, LastSeenAt: now})
			displaced = append(displaced, prev)
			return err
		}))
	}

	assert.Nil(t, displaced[0])
	require.NotNil(t, displaced[2])
	assert.Equal(t, "t2", displaced[2].Token)

	sess, err := s.GetSession(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "t3", sess.Token)

	ok, err := s.TouchSession(ctx, a.ID, "t1", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.TouchSession(ctx, a.ID, "t3", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		gone, err := tx.DeleteSession(ctx, a.ID, "t1")
		assert.Nil(t, gone)
		return err
	}))
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		gone, err := tx.DeleteSession(ctx, a.ID, "")
		require.NotNil(t, gone)
		return err
	}))

	_, err = s.GetSession(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChangesPublishedAfterCommit(t *testing.T) {
	s := openTestStore(t)
	a := createAccount(t, s, "a@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed, err := s.Changes(ctx)
	require.NoError(t, err)

	reason := "cheating"
	err = s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.SetBanned(ctx, a.ID, true, &reason, ""); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	select {
	case c := <-feed:
		t.Fatalf("unexpected change from rolled back tx: %+v", c)
	default:
	}

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		c, err := tx.SetBanned(ctx, a.ID, true, &reason, "")
		assert.True(t, c.BanApplied())
		return err
	}))

	select {
	case c := <-feed:
		assert.Equal(t, a.ID, c.AccountID)
		assert.True(t, c.BanApplied())
		require.NotNil(t, c.BanReason)
		assert.Equal(t, "cheating", *c.BanReason)
	case <-time.After(time.Second):
		t.Fatal("no change published")
	}

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Banned)
	assert.NotNil(t, got.BannedAt)

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-feed
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestLedgerTotalsReportsDrift(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := createAccount(t, s, "a@example.com")

	// balance moved without a ledger row
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.AddAccountBalance(ctx, a.ID, 10)
		return err
	}))

	totals, err := s.LedgerTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), totals.AccountBalances)
	assert.Equal(t, []string{a.ID}, totals.Drifted)
}

func TestCommitFailureSurfaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE accounts SET balance = balance \+ \?`).
		WithArgs(int64(100), sqlmock.AnyArg(), "acc-1", int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(100))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	err = s.WithTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.AddAccountBalance(ctx, "acc-1", 100)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitFailureDropsChanges(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(db)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed, err := s.Changes(ctx)
	require.NoError(t, err)

	cols := []string{"id", "email", "username", "full_name", "password_hash", "role", "balance",
		"is_banned", "ban_reason", "banned_at", "banned_by", "created_at", "updated_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \?`).
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("acc-1", "a@example.com", "a", "", "x", "user", 0, 0, nil, nil, nil, 0, 0))
	mock.ExpectExec(`UPDATE accounts\s+SET is_banned`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err = s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.SetBanned(ctx, "acc-1", true, nil, "")
		return err
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	select {
	case c := <-feed:
		t.Fatalf("change published despite failed commit: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}
