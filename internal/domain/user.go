package domain

import "time"

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`              // Primary key
	Name      string    `gorm:"not null" json:"name"`              // Display name
	Email     string    `gorm:"uniqueIndex;not null" json:"email"` // Unique email
	CreatedAt time.Time `json:"createdAt"`                         // Registration timestamp
	Wallet    Wallet    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"` // One-to-one relationship with Wallet
}
