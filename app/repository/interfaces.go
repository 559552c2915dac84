package repository

import (
	"time"

	"github.com/barrixlabs/barrix-api/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for account-related database operations.
// Usage-counter writes go through the guarded helpers below so that the usage
// meter and the subscription reconciler never overwrite each other's columns.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	UpdateLastLogin(id uint, at time.Time) error
	SetBillingCustomerRef(id uint, customerID string) error

	// ResetUsageWindow moves the account's usage window from fromMonth to
	// toMonth and zeroes the counter. The month guard makes the reset
	// idempotent: a second call in the same window affects no rows.
	ResetUsageWindow(id uint, fromMonth, toMonth string, at time.Time) (bool, error)

	// ConsumeUsage increments the usage counter by one, guarded by the
	// expected current count and window (optimistic compare-and-swap).
	// Returns false without error when a concurrent writer won the race.
	ConsumeUsage(id uint, month string, expectedCount int) (bool, error)

	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User UserRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User: NewUserRepository(db),
	}
}
