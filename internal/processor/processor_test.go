package processor

import (
	"context"
	"sync"
	"testing"

	"walletledger/internal/domain"
	"walletledger/internal/ledger"
	"walletledger/internal/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// capturePublisher records published transactions for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []*domain.Transaction
}

func (p *capturePublisher) PublishTransaction(_ context.Context, t *domain.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, t)
}

func (p *capturePublisher) published() []*domain.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.Transaction(nil), p.events...)
}

func setupProcessor(t *testing.T) (*Processor, *capturePublisher, uint) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Wallet{}, &domain.Transaction{}))

	user := domain.User{Name: "Asha", Email: "asha@example.com"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&domain.Wallet{UserID: user.ID}).Error)

	pub := &capturePublisher{}
	return New(ledger.NewStore(db), pub), pub, user.ID
}

func TestCreditRejectsNonPositiveAmounts(t *testing.T) {
	proc, pub, userID := setupProcessor(t)
	ctx := context.Background()

	for _, amount := range []money.Minor{0, -100} {
		_, err := proc.Credit(ctx, userID, amount)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		_, err = proc.Debit(ctx, userID, amount)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
	assert.Empty(t, pub.published()) // Nothing reached the ledger
}

func TestCreditPublishesEvent(t *testing.T) {
	proc, pub, userID := setupProcessor(t)

	tx, err := proc.Credit(context.Background(), userID, 50000)
	require.NoError(t, err)

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, tx.ID, events[0].ID)
	assert.Equal(t, domain.StatusSuccess, events[0].Status)
}

func TestRejectedDebitPublishesFailedEvent(t *testing.T) {
	proc, pub, userID := setupProcessor(t)

	_, err := proc.Debit(context.Background(), userID, 100000)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, domain.StatusFailed, events[0].Status)
}

func TestBalanceReflectsCommittedState(t *testing.T) {
	proc, _, userID := setupProcessor(t)
	ctx := context.Background()

	_, err := proc.Credit(ctx, userID, 50000)
	require.NoError(t, err)
	_, err = proc.Debit(ctx, userID, 20000)
	require.NoError(t, err)

	wallet, err := proc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, money.Minor(30000), wallet.Balance)
}
