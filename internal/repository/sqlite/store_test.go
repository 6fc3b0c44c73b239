package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createUser(t *testing.T, s *Store, name, cash string) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:           uuid.New(),
		Username:     name,
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		Cash:         domain.MustParseMoney(cash),
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, s.Create(context.Background(), user))
	return user
}

func buyRecord(userID uuid.UUID, id string, shares int64, price string, at time.Time) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:        id,
		UserID:    userID,
		Symbol:    "SYM",
		Kind:      domain.KindBuy,
		Shares:    shares,
		Price:     domain.MustParseMoney(price),
		CreatedAt: at,
	}
}

func TestSQLiteUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createUser(t, s, "Alice", "10000.00")

	got, err := s.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Username)
	assert.Equal(t, "10000.00", got.Cash.String())
	assert.True(t, got.CreatedAt.Equal(user.CreatedAt))

	got, err = s.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	dup := &domain.User{ID: uuid.New(), Username: "ALICE", Role: domain.RoleUser, CreatedAt: time.Now()}
	assert.ErrorIs(t, s.Create(ctx, dup), domain.ErrUsernameTaken)

	_, err = s.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	createUser(t, s, "bob", "1.00")
	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteUpdateAccountCommits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createUser(t, s, "alice", "1000.00")
	at := time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.UTC)

	err := s.UpdateAccount(ctx, user.ID, func(tx domain.AccountTx) error {
		cash, err := tx.ReadBalance(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1000.00", cash.String())

		if err := tx.AppendTransaction(ctx, buyRecord(user.ID, "01A", 10, "12.34", at)); err != nil {
			return err
		}
		records, err := tx.ReadTransactions(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 1, "appended rows are visible inside the transaction")

		return tx.UpdateBalance(ctx, cash.Sub(domain.MustParseMoney("123.40")))
	})
	require.NoError(t, err)

	snap, err := s.ReadAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "876.60", snap.Cash.String())
	require.Len(t, snap.Transactions, 1)

	rec := snap.Transactions[0]
	assert.Equal(t, "01A", rec.ID)
	assert.Equal(t, user.ID, rec.UserID)
	assert.Equal(t, domain.KindBuy, rec.Kind)
	assert.Equal(t, int64(10), rec.Shares)
	assert.Equal(t, "12.34", rec.Price.String())
	assert.True(t, rec.CreatedAt.Equal(at))
}

func TestSQLiteUpdateAccountRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createUser(t, s, "alice", "100.00")
	boom := errors.New("boom")

	err := s.UpdateAccount(ctx, user.ID, func(tx domain.AccountTx) error {
		require.NoError(t, tx.AppendTransaction(ctx, buyRecord(user.ID, "01A", 1, "1.00", time.Now())))
		require.NoError(t, tx.UpdateBalance(ctx, domain.MustParseMoney("99.00")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	snap, err := s.ReadAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", snap.Cash.String())
	assert.Empty(t, snap.Transactions)
}

func TestSQLiteRejectsNegativeBalance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createUser(t, s, "alice", "5.00")

	err := s.UpdateAccount(ctx, user.ID, func(tx domain.AccountTx) error {
		return tx.UpdateBalance(ctx, domain.MustParseMoney("-0.01"))
	})
	assert.ErrorIs(t, err, domain.ErrStore)

	cash, err := s.ReadBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.00", cash.String())
}

func TestSQLiteRejectsMalformedRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createUser(t, s, "alice", "5.00")

	err := s.UpdateAccount(ctx, user.ID, func(tx domain.AccountTx) error {
		return tx.AppendTransaction(ctx, buyRecord(user.ID, "01A", 0, "1.00", time.Now()))
	})
	assert.ErrorIs(t, err, domain.ErrDataIntegrity)
}

func TestSQLiteUnknownAccount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.UpdateAccount(ctx, uuid.New(), func(tx domain.AccountTx) error { return nil })
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = s.ReadTransactions(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestSQLiteConcurrentUpdatesSerialize(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createUser(t, s, "alice", "0.00")

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.UpdateAccount(ctx, user.ID, func(tx domain.AccountTx) error {
				cash, err := tx.ReadBalance(ctx)
				if err != nil {
					return err
				}
				return tx.UpdateBalance(ctx, cash.Add(domain.MustParseMoney("1.00")))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cash, err := s.ReadBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", cash.String())
}

func TestSQLiteInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(context.Background()))
	createUser(t, s, "alice", "1.00")
	all, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteReadsLogInAppendOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createUser(t, s, "alice", "100.00")
	later := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	for _, rec := range []*domain.TransactionRecord{
		buyRecord(user.ID, "01B", 1, "1.00", later),
		buyRecord(user.ID, "01A", 2, "1.00", later.Add(-time.Hour)),
	} {
		require.NoError(t, s.UpdateAccount(ctx, user.ID, func(tx domain.AccountTx) error {
			return tx.AppendTransaction(ctx, rec)
		}))
	}

	records, err := s.ReadTransactions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "01B", records[0].ID)
	assert.Equal(t, "01A", records[1].ID)
}

func TestSQLiteRejectsOutOfRangeBalance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createUser(t, s, "alice", "5.00")

	err := s.UpdateAccount(ctx, user.ID, func(tx domain.AccountTx) error {
		return tx.UpdateBalance(ctx, domain.MaxMoney.Add(domain.MustParseMoney("0.01")))
	})
	assert.ErrorIs(t, err, domain.ErrInputValidation)

	cash, err := s.ReadBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.00", cash.String())

	huge := &domain.User{ID: uuid.New(), Username: "bob", Role: domain.RoleUser, Cash: domain.MaxMoney.MulInt(10), CreatedAt: time.Now()}
	assert.ErrorIs(t, s.Create(ctx, huge), domain.ErrInputValidation)
}
