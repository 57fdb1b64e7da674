package processor

import (
	"context"
	"errors"
	"time"

	"walletledger/internal/domain"
	"walletledger/internal/events"
	"walletledger/internal/ledger"
	"walletledger/internal/money"

	"github.com/sirupsen/logrus" // Logging library
)

// Processor validates credit/debit commands and applies them through the
// Ledger Store. Every appended Transaction record, SUCCESS or FAILED, is
// published to the event stream fire-and-forget.
type Processor struct {
	ledger    *ledger.Store
	publisher events.Publisher
}

// New creates a Processor. A nil publisher disables event publishing.
func New(store *ledger.Store, publisher events.Publisher) *Processor {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Processor{ledger: store, publisher: publisher}
}

// Credit increases a wallet's balance by amount.
func (p *Processor) Credit(ctx context.Context, userID uint, amount money.Minor) (*domain.Transaction, error) {
	return p.apply(ctx, userID, domain.TypeCredit, amount)
}

// Debit decreases a wallet's balance by amount. Debiting more than the
// current balance returns domain.ErrInsufficientFunds; the rejected attempt
// is still recorded in the ledger as a FAILED transaction.
func (p *Processor) Debit(ctx context.Context, userID uint, amount money.Minor) (*domain.Transaction, error) {
	return p.apply(ctx, userID, domain.TypeDebit, amount)
}

func (p *Processor) apply(ctx context.Context, userID uint, txType string, amount money.Minor) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	rec, err := p.ledger.Apply(ctx, userID, txType, amount)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) && rec != nil {
			logrus.WithFields(logrus.Fields{
				"user_id":        userID,
				"amount":         amount.String(),
				"transaction_id": rec.ID,
			}).Warn("Debit rejected: insufficient funds")
			p.publisher.PublishTransaction(ctx, rec)
		}
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"amount":         amount.String(),
		"type":           txType,
		"transaction_id": rec.ID,
		"timestamp":      time.Now().Format(time.RFC3339), // Current timestamp
	}).Info("Transaction applied")
	p.publisher.PublishTransaction(ctx, rec)
	return rec, nil
}

// Balance returns the latest committed state of a user's wallet.
func (p *Processor) Balance(ctx context.Context, userID uint) (*domain.Wallet, error) {
	return p.ledger.Wallet(ctx, userID)
}

// History returns a page of the user's transaction log, newest first.
func (p *Processor) History(ctx context.Context, userID uint, page, pageSize int) (*ledger.HistoryPage, error) {
	return p.ledger.History(ctx, userID, page, pageSize)
}
