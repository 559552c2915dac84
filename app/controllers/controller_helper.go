package controllers

import (
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/barrixlabs/barrix-api/app/models"
	"github.com/barrixlabs/barrix-api/internal/pkg/quota"
)

// isDuplicateEntry reports whether err is a unique-index violation. The
// registration pre-check races with concurrent inserts, so the insert itself
// is the authority on duplicates.
func isDuplicateEntry(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// userPayload is the account shape embedded in auth responses.
func userPayload(user *models.User, snap quota.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"id":    user.ID,
		"email": user.Email,
		"subscription": map[string]interface{}{
			"plan":               snap.Plan,
			"status":             user.SubscriptionStatus,
			"currentPeriodStart": formatTimePtr(user.CurrentPeriodStart),
			"currentPeriodEnd":   formatTimePtr(user.CurrentPeriodEnd),
		},
		"usage": map[string]interface{}{
			"apiCalls": snap.Current,
			"limit":    snap.Limit,
		},
	}
}
