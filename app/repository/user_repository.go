package repository

import (
	"time"

	"github.com/barrixlabs/barrix-api/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateLastLogin stores the login timestamp without touching other columns.
func (r *userRepository) UpdateLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// SetBillingCustomerRef links the account to a billing-provider customer.
func (r *userRepository) SetBillingCustomerRef(id uint, customerID string) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("stripe_customer_id", customerID).Error
}

// ResetUsageWindow rolls the usage window forward. The WHERE clause on the
// old month means concurrent callers crossing the same boundary reset the
// counter exactly once.
func (r *userRepository) ResetUsageWindow(id uint, fromMonth, toMonth string, at time.Time) (bool, error) {
	tx := r.db.Model(&models.User{}).
		Where("id = ? AND usage_month = ?", id, fromMonth).
		Updates(map[string]interface{}{
			"usage_month": toMonth,
			"usage_count": 0,
			"last_reset":  at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ConsumeUsage performs the optimistic increment. The guard on usage_count
// and usage_month turns a concurrent double-spend into a no-op the meter can
// retry against fresh state.
func (r *userRepository) ConsumeUsage(id uint, month string, expectedCount int) (bool, error) {
	tx := r.db.Model(&models.User{}).
		Where("id = ? AND usage_month = ? AND usage_count = ?", id, month, expectedCount).
		Update("usage_count", expectedCount+1)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
