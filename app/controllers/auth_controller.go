package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/barrixlabs/barrix-api/app/models"
	"github.com/barrixlabs/barrix-api/app/repository"
	"github.com/barrixlabs/barrix-api/internal/pkg/env"
	"github.com/barrixlabs/barrix-api/internal/pkg/quota"
	"github.com/barrixlabs/barrix-api/internal/pkg/security"
	"github.com/barrixlabs/barrix-api/internal/pkg/usercontext"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new account on the free tier with a fresh usage
// window and returns a bearer token.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	repo := repository.GetGlobalFactory().GetUserRepository()

	if _, err := repo.GetByEmail(email); err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User already exists"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("register lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	if len(name) < 3 {
		name = "user-" + name
	}

	user, err := models.CreateUser(name, email, req.Password, quota.MonthToken(time.Now()))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := repo.Create(user); err != nil {
		if isDuplicateEntry(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User already exists"})
		}
		log.Printf("register create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	token, err := security.GenerateAuthToken(user.ID, env.GetEnv("JWT_SECRET", ""), security.DefaultAuthTokenTTL)
	if err != nil {
		log.Printf("register token issue failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	meter := quota.NewMeter(repo)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    userPayload(user, meter.Check(user)),
	})
}

// HandleLogin verifies credentials, rolls the usage window forward if the
// month changed, and returns a bearer token.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}
		log.Printf("login lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	if !user.CheckPassword(req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	meter := quota.NewMeter(repo)
	if err := meter.ResolveWindow(user); err != nil {
		log.Printf("login usage window resolve failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}
	if err := repo.UpdateLastLogin(user.ID, time.Now()); err != nil {
		log.Printf("failed to update last login for user %d: %v", user.ID, err)
	}

	token, err := security.GenerateAuthToken(user.ID, env.GetEnv("JWT_SECRET", ""), security.DefaultAuthTokenTTL)
	if err != nil {
		log.Printf("login token issue failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    userPayload(user, meter.Check(user)),
	})
}

// HandleMe returns the authenticated account with its current usage snapshot.
func HandleMe(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	repo := repository.GetGlobalFactory().GetUserRepository()

	user, err := repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		log.Printf("me lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get user data"})
	}

	meter := quota.NewMeter(repo)
	if err := meter.ResolveWindow(user); err != nil {
		log.Printf("me usage window resolve failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get user data"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userPayload(user, meter.Check(user)),
	})
}
