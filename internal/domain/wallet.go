package domain

import "walletledger/internal/money"

// Wallet Model
type Wallet struct {
	ID      uint        `gorm:"primaryKey" json:"id"`              // Primary key
	UserID  uint        `gorm:"uniqueIndex" json:"userId"`         // Foreign key to User
	Balance money.Minor `gorm:"not null;default:0" json:"balance"` // Balance in minor units, never negative
	Version uint        `gorm:"not null;default:0" json:"-"`       // Incremented on every applied mutation
}
