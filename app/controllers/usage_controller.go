package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/barrixlabs/barrix-api/app/repository"
	"github.com/barrixlabs/barrix-api/internal/pkg/metrics/counter"
	"github.com/barrixlabs/barrix-api/internal/pkg/quota"
	"github.com/barrixlabs/barrix-api/internal/pkg/usercontext"
)

func usagePayload(snap quota.Snapshot) fiber.Map {
	return fiber.Map{
		"current":   snap.Current,
		"limit":     snap.Limit,
		"remaining": snap.Remaining,
		"plan":      snap.Plan,
	}
}

// HandleUsageCheck reports whether the account has quota left this month
// without consuming any of it.
func HandleUsageCheck(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(usercontext.GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		log.Printf("usage check lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check usage"})
	}

	meter := quota.NewMeter(repo)
	if err := meter.ResolveWindow(user); err != nil {
		log.Printf("usage window resolve failed for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check usage"})
	}

	snap := meter.Check(user)
	payload := usagePayload(snap)
	payload["canProceed"] = snap.Remaining > 0
	return c.JSON(payload)
}

// HandleUsageTrack consumes one unit of quota for the authenticated account.
// A full window is a 403 with the snapshot so clients can render the state.
func HandleUsageTrack(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(usercontext.GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		log.Printf("usage track lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to track usage"})
	}

	meter := quota.NewMeter(repo)
	snap, err := meter.TryConsume(user)
	if err != nil {
		switch {
		case errors.Is(err, quota.ErrQuotaExceeded):
			payload := usagePayload(snap)
			payload["error"] = "API call limit reached for your plan"
			return c.Status(fiber.StatusForbidden).JSON(payload)
		case errors.Is(err, quota.ErrConcurrentUpdate):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Too much contention, please retry"})
		default:
			log.Printf("usage track failed for user %d: %v", user.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to track usage"})
		}
	}

	_ = counter.AddTrackedCall(snap.Plan)

	payload := usagePayload(snap)
	payload["success"] = true
	return c.JSON(payload)
}
