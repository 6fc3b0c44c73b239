package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/domain"
	"papertrade/internal/repository/sqlite"
	"papertrade/internal/service"
)

func openSQLite(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newSQLiteAccount(t *testing.T, s *sqlite.Store, cash string) uuid.UUID {
	t.Helper()
	user := &domain.User{
		ID:        uuid.New(),
		Username:  "alice",
		Role:      domain.RoleUser,
		Cash:      domain.MustParseMoney(cash),
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.Create(context.Background(), user))
	return user.ID
}

func testQuotes() *service.StaticQuoteService {
	return service.NewStaticQuoteService(
		domain.Quote{Symbol: "SYM", Name: "Symbolic Inc.", Price: domain.MustParseMoney("50.00")},
	)
}

func TestSQLiteDepositCannotOverflowBalance(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t, filepath.Join(t.TempDir(), "ledger.db"))
	userID := newSQLiteAccount(t, store, "10000.00")
	svc := NewTradingService(store, testQuotes(), nil, time.Second)

	_, err := domain.ParseDeposit("184467440737095517.16")
	assert.ErrorIs(t, err, domain.ErrInputValidation)

	// in range on its own, out of range once added to the balance
	_, err = svc.Deposit(ctx, userID, domain.MaxMoney)
	assert.ErrorIs(t, err, domain.ErrInputValidation)
	assert.False(t, domain.IsRetryable(err))

	stored, err := store.ReadBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "10000.00", stored.String())

	// the returned balance is the stored balance, right up to the limit
	_, err = svc.Buy(ctx, userID, order("SYM", 1))
	require.NoError(t, err)
	balance, err := svc.Deposit(ctx, userID, domain.MaxMoney.Sub(domain.MustParseMoney("9950.00")))
	require.NoError(t, err)
	assert.Equal(t, domain.MaxMoney.String(), balance.String())

	stored, err = store.ReadBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, balance.String(), stored.String())

	// selling would push the balance past the limit
	_, err = svc.Sell(ctx, userID, order("SYM", 1))
	assert.ErrorIs(t, err, domain.ErrInputValidation)
	assert.Equal(t, int64(1), mustHeld(t, svc, userID, "SYM"))
}

func TestSQLiteTradeTotalIsBounded(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t, filepath.Join(t.TempDir(), "ledger.db"))
	userID := newSQLiteAccount(t, store, "10000.00")
	quotes := testQuotes()
	quotes.SetQuote(domain.Quote{Symbol: "BIG", Name: "Big", Price: domain.MaxMoney})
	svc := NewTradingService(store, quotes, nil, time.Second)

	_, err := svc.Buy(ctx, userID, order("BIG", 2))
	assert.ErrorIs(t, err, domain.ErrInputValidation)

	snap, err := store.ReadAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "10000.00", snap.Cash.String())
	assert.Empty(t, snap.Transactions)
}

func TestPositionIsCappedAtMaxShares(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "10000.00")
	f.setPrice("PENNY", "0.01")
	_, err := f.svc.Deposit(ctx, f.userID, domain.MustParseMoney("100000000000000.00"))
	require.NoError(t, err)

	_, err = f.svc.Buy(ctx, f.userID, order("PENNY", domain.MaxShares))
	require.NoError(t, err)

	_, err = f.svc.Buy(ctx, f.userID, order("PENNY", 1))
	assert.ErrorIs(t, err, domain.ErrInputValidation)
	assert.Equal(t, domain.MaxShares, f.held(t, "PENNY"))
}

// A trade stamped by one process must not land before a trade another process committed first
func TestSQLiteLogFollowsCommitOrderAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	first := openSQLite(t, path)
	second := openSQLite(t, path)
	userID := newSQLiteAccount(t, first, "1000.00")

	seller := NewTradingService(first, testQuotes(), nil, time.Second)
	buyer := NewTradingService(second, testQuotes(), nil, time.Second)

	// hold the seller's account lock so its sell waits after the quote lookup
	unlock := seller.lockAccount(userID)

	sold := make(chan error, 1)
	go func() {
		_, err := seller.Sell(ctx, userID, order("SYM", 10))
		sold <- err
	}()
	time.Sleep(100 * time.Millisecond)

	_, err := buyer.Buy(ctx, userID, order("SYM", 10))
	require.NoError(t, err)

	unlock()
	require.NoError(t, <-sold)
	assert.Zero(t, seller.lockedAccounts())

	records, err := first.ReadTransactions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.KindBuy, records[0].Kind)
	assert.Equal(t, domain.KindSell, records[1].Kind)
	assert.False(t, records[1].CreatedAt.Before(records[0].CreatedAt))

	history, err := seller.History(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.KindSell, history[0].Kind)

	report, err := service.NewAuditService(first, first).RunAudit(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean(), "audit problems: %+v", report.Problems)
}

func mustHeld(t *testing.T, svc *TradingService, userID uuid.UUID, symbol string) int64 {
	t.Helper()
	positions, err := svc.Positions(context.Background(), userID)
	require.NoError(t, err)
	return positions.Held(symbol)
}
