package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"walletledger/internal/domain"

	"github.com/go-sql-driver/mysql" // MySQL error codes
	"gorm.io/gorm"                   // GORM ORM library
)

// Registry owns User identity allocation. A User and its zero-balance Wallet
// are created in a single database transaction: there is no window in which
// a User exists without a Wallet.
type Registry struct {
	db *gorm.DB
}

// New creates a Registry on top of the given database handle.
func New(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// CreateUser registers a new user with a zero-balance wallet. A duplicate
// email fails with domain.ErrEmailTaken; the unique index makes this
// race-safe under concurrent registration attempts.
func (r *Registry) CreateUser(ctx context.Context, name, email string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	user := domain.User{Name: name, Email: email}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if isDuplicateKey(err) {
				return domain.ErrEmailTaken
			}
			return err // Return error to rollback
		}
		return tx.Create(&domain.Wallet{UserID: user.ID, Balance: 0}).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser looks up a user by id.
func (r *Registry) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// isDuplicateKey reports whether err is a unique-constraint violation.
// Covers gorm's translated error, MySQL error 1062 and the sqlite driver
// used in tests.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
