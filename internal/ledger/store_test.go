package ledger

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"walletledger/internal/domain"
	"walletledger/internal/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// An in-memory sqlite database lives on a single connection.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Wallet{}, &domain.Transaction{}))
	return db
}

func seedWallet(t *testing.T, db *gorm.DB, balance money.Minor) uint {
	t.Helper()
	user := domain.User{Name: "Asha", Email: "asha@example.com"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&domain.Wallet{UserID: user.ID, Balance: balance}).Error)
	return user.ID
}

func walletBalance(t *testing.T, db *gorm.DB, userID uint) money.Minor {
	t.Helper()
	var w domain.Wallet
	require.NoError(t, db.Where("user_id = ?", userID).First(&w).Error)
	return w.Balance
}

func TestApplyCreditAndDebit(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	userID := seedWallet(t, db, 0)
	ctx := context.Background()

	tx, err := store.Apply(ctx, userID, domain.TypeCredit, 50000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, tx.Status)
	assert.Equal(t, money.Minor(50000), tx.ResultingBalance)

	tx, err = store.Apply(ctx, userID, domain.TypeDebit, 20000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, tx.Status)
	assert.Equal(t, money.Minor(30000), tx.ResultingBalance)

	assert.Equal(t, money.Minor(30000), walletBalance(t, db, userID))
}

func TestApplyIncrementsVersion(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	userID := seedWallet(t, db, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Apply(ctx, userID, domain.TypeCredit, 100)
		require.NoError(t, err)
	}
	var w domain.Wallet
	require.NoError(t, db.Where("user_id = ?", userID).First(&w).Error)
	assert.Equal(t, uint(3), w.Version)
}

func TestDebitInsufficientFundsRecordsFailedTransaction(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	userID := seedWallet(t, db, 30000)
	ctx := context.Background()

	tx, err := store.Apply(ctx, userID, domain.TypeDebit, 100000)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.NotNil(t, tx)
	assert.Equal(t, domain.StatusFailed, tx.Status)
	// The failed record carries the balance prior to the attempt.
	assert.Equal(t, money.Minor(30000), tx.ResultingBalance)

	// Balance untouched and the rejection is in the log.
	assert.Equal(t, money.Minor(30000), walletBalance(t, db, userID))
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).
		Where("user_id = ? AND status = ?", userID, domain.StatusFailed).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// A credit that would push the balance past MaxInt64 must be rejected
// outright: a wrapped balance would be negative.
func TestCreditOverflowRejected(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	userID := seedWallet(t, db, 0)
	ctx := context.Background()

	huge := money.Minor(1) << 62
	tx, err := store.Apply(ctx, userID, domain.TypeCredit, huge)
	require.NoError(t, err)
	assert.Equal(t, huge, tx.ResultingBalance)

	_, err = store.Apply(ctx, userID, domain.TypeCredit, huge)
	require.ErrorIs(t, err, domain.ErrBalanceOverflow)

	// Balance unchanged, invariant holds, and nothing was logged for the
	// rejected attempt.
	balance := walletBalance(t, db, userID)
	assert.Equal(t, huge, balance)
	assert.GreaterOrEqual(t, int64(balance), int64(0))
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreditAtExactCapacity(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	userID := seedWallet(t, db, 1<<62)
	ctx := context.Background()

	// Filling the balance to exactly MaxInt64 is still legal.
	rest := money.Minor(math.MaxInt64) - (1 << 62)
	tx, err := store.Apply(ctx, userID, domain.TypeCredit, rest)
	require.NoError(t, err)
	assert.Equal(t, money.Minor(math.MaxInt64), tx.ResultingBalance)
}

func TestApplyUnknownWallet(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	_, err := store.Apply(context.Background(), 42, domain.TypeCredit, 100)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestWalletUnknownUser(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	_, err := store.Wallet(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

// Concurrent credits and debits on one wallet must serialize to a result
// consistent with some total order: with matched amounts the final balance
// equals the starting balance and every operation succeeds.
func TestConcurrentCreditsAndDebitsSerialize(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	userID := seedWallet(t, db, 100000)
	ctx := context.Background()

	const pairs = 20
	var wg sync.WaitGroup
	errs := make(chan error, pairs*2)
	for i := 0; i < pairs; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := store.Apply(ctx, userID, domain.TypeCredit, 500)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := store.Apply(ctx, userID, domain.TypeDebit, 500)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// Starting balance covers any interleaving, so every debit succeeds.
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, money.Minor(100000), walletBalance(t, db, userID))
}

// Debits racing over a small balance: exactly as many succeed as the
// balance allows, the rest fail, and the balance never goes negative.
func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	userID := seedWallet(t, db, 1000) // 10.00
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Apply(ctx, userID, domain.TypeDebit, 300) // 3.00 each
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
			rejected++
		}
	}
	assert.Equal(t, 3, succeeded) // 10.00 funds exactly three 3.00 debits
	assert.Equal(t, attempts-3, rejected)
	assert.Equal(t, money.Minor(100), walletBalance(t, db, userID))
}

// Operations on distinct wallets must not contend: with one wallet's
// serialization point held, another wallet's operation still completes.
func TestDistinctWalletsDoNotBlock(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	userA := domain.User{Name: "Asha", Email: "asha@example.com"}
	require.NoError(t, db.Create(&userA).Error)
	require.NoError(t, db.Create(&domain.Wallet{UserID: userA.ID}).Error)
	userB := domain.User{Name: "Ben", Email: "ben@example.com"}
	require.NoError(t, db.Create(&userB).Error)
	require.NoError(t, db.Create(&domain.Wallet{UserID: userB.ID}).Error)

	// Park wallet A's lock, as a long-running operation would.
	lockA := store.lockFor(userA.ID)
	lockA.Lock()
	defer lockA.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := store.Apply(context.Background(), userB.ID, domain.TypeCredit, 100)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("operation on wallet B blocked behind wallet A's lock")
	}
	assert.Equal(t, money.Minor(100), walletBalance(t, db, userB.ID))
}

func TestHistoryPagination(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	userID := seedWallet(t, db, 0)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := store.Apply(ctx, userID, domain.TypeCredit, 100)
		require.NoError(t, err)
	}

	page, err := store.History(ctx, userID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 10)
	assert.EqualValues(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)

	last, err := store.History(ctx, userID, 3, 10)
	require.NoError(t, err)
	assert.Len(t, last.Transactions, 5)

	// Newest first: the first entry on page one is the last applied.
	first := page.Transactions[0]
	assert.Equal(t, money.Minor(2500), first.ResultingBalance)
}

func TestHistoryUnknownUser(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	_, err := store.History(context.Background(), 42, 1, 20)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

// Paging inputs outside their valid range are clamped, never producing a
// negative offset or a zero divisor.
func TestHistoryClampsPagingInputs(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	userID := seedWallet(t, db, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Apply(ctx, userID, domain.TypeCredit, 100)
		require.NoError(t, err)
	}

	page, err := store.History(ctx, userID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Len(t, page.Transactions, 5)
	assert.Equal(t, 1, page.TotalPages)

	page, err = store.History(ctx, userID, -3, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.PageSize)
	assert.Len(t, page.Transactions, 5)
}
