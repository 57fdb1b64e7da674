package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"walletledger/internal/domain"
	"walletledger/internal/money"

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Transient storage failures are retried this many times before the error
// surfaces to the caller.
const applyAttempts = 3

// Store owns all Wallet and Transaction records. Every balance mutation for
// a wallet is serialized through that wallet's mutex and committed together
// with its Transaction row in one database transaction, so no interleaving
// can observe a half-applied operation or a negative balance.
type Store struct {
	db    *gorm.DB
	mu    sync.Mutex
	locks map[uint]*sync.Mutex // Per-wallet serialization points, keyed by user ID
}

// NewStore creates a Store on top of the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, locks: make(map[uint]*sync.Mutex)}
}

// lockFor returns the serialization mutex for a user's wallet, allocating it
// on first use. Distinct wallets never share a mutex, so operations on
// different wallets proceed without contending.
func (s *Store) lockFor(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Apply atomically applies one credit or debit to a user's wallet and appends
// the resulting Transaction record. A debit exceeding the balance leaves the
// wallet untouched, appends a FAILED record with the pre-attempt balance, and
// returns that record together with domain.ErrInsufficientFunds.
func (s *Store) Apply(ctx context.Context, userID uint, txType string, amount money.Minor) (*domain.Transaction, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	var rec *domain.Transaction
	var err error
	for attempt := 1; attempt <= applyAttempts; attempt++ {
		rec, err = s.applyOnce(ctx, userID, txType, amount)
		if err == nil || isDomainError(err) {
			return rec, err
		}
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"type":    txType,
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Ledger apply failed, retrying")
		time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
	}
	return nil, err
}

// applyOnce runs a single read-check-write-append cycle in one database
// transaction. The caller holds the wallet's mutex.
func (s *Store) applyOnce(ctx context.Context, userID uint, txType string, amount money.Minor) (*domain.Transaction, error) {
	var rec domain.Transaction
	insufficient := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet domain.Wallet
		if err := tx.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrWalletNotFound
			}
			return err
		}
		newBalance := wallet.Balance
		status := domain.StatusSuccess
		switch txType {
		case domain.TypeCredit:
			// Guard the addition: a wrapped balance would go negative and
			// break the non-negative invariant.
			if wallet.Balance > money.Minor(math.MaxInt64)-amount {
				return domain.ErrBalanceOverflow
			}
			newBalance += amount
		case domain.TypeDebit:
			if wallet.Balance < amount {
				// No balance change; the FAILED record below keeps the
				// rejected attempt in the audit log.
				insufficient = true
				status = domain.StatusFailed
			} else {
				newBalance -= amount
			}
		}
		if !insufficient {
			updates := map[string]any{
				"balance": newBalance,
				"version": gorm.Expr("version + 1"),
			}
			if err := tx.Model(&wallet).Updates(updates).Error; err != nil {
				return err // Return error to rollback
			}
		}
		rec = domain.Transaction{
			UserID:           userID,
			WalletID:         wallet.ID,
			Type:             txType,
			Amount:           amount,
			Status:           status,
			ResultingBalance: newBalance,
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	if insufficient {
		return &rec, domain.ErrInsufficientFunds
	}
	return &rec, nil
}

// Wallet returns the latest committed state of a user's wallet.
func (s *Store) Wallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// HistoryPage is one page of a user's transaction log, newest first.
type HistoryPage struct {
	Transactions []domain.Transaction `json:"transactions"` // Transactions on this page
	Page         int                  `json:"page"`         // Current page
	PageSize     int                  `json:"page_size"`    // Page size
	Total        int64                `json:"total"`        // Total transactions
	TotalPages   int                  `json:"total_pages"`  // Total pages
}

// History returns a page of the user's transaction log. The log is complete:
// nothing is truncated server-side, pagination is the only window.
// Out-of-range paging inputs are clamped so callers cannot produce a
// negative offset or a zero divisor.
func (s *Store) History(ctx context.Context, userID uint, page, pageSize int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	} else if pageSize > 100 {
		pageSize = 100
	}
	if _, err := s.Wallet(ctx, userID); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&domain.Transaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, err
	}
	var transactions []domain.Transaction
	if err := db.Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return &HistoryPage{
		Transactions: transactions,
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
		TotalPages:   (int(total) + pageSize - 1) / pageSize,
	}, nil
}

// isDomainError reports whether err is a domain outcome rather than a
// storage failure; domain outcomes are never retried.
func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrWalletNotFound) ||
		errors.Is(err, domain.ErrInsufficientFunds) ||
		errors.Is(err, domain.ErrBalanceOverflow)
}
