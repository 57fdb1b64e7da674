package domain

import (
	"time"

	"walletledger/internal/money"
)

// Transaction types
const (
	TypeCredit = "CREDIT"
	TypeDebit  = "DEBIT"
)

// Transaction statuses
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Transaction Model. Rows are append-only: a transaction is never updated
// or deleted once created. Rejected debits are recorded as FAILED with
// ResultingBalance equal to the balance before the attempt.
type Transaction struct {
	ID               uint        `gorm:"primaryKey" json:"id"`         // Primary key
	UserID           uint        `gorm:"index;not null" json:"userId"` // Owning user
	WalletID         uint        `gorm:"index;not null" json:"-"`      // Foreign key to Wallet
	Type             string      `gorm:"not null" json:"type"`         // CREDIT or DEBIT
	Amount           money.Minor `gorm:"not null" json:"amount"`       // Requested amount, always positive
	Status           string      `gorm:"not null" json:"status"`       // SUCCESS or FAILED
	ResultingBalance money.Minor `gorm:"not null" json:"resultingBalance"` // Balance after the operation
	CreatedAt        time.Time   `json:"timestamp"`                    // Timestamp of creation
}
