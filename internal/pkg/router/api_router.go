package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/barrixlabs/barrix-api/app/controllers"
	"github.com/barrixlabs/barrix-api/internal/pkg/cache"
	"github.com/barrixlabs/barrix-api/internal/pkg/constants"
	"github.com/barrixlabs/barrix-api/internal/pkg/env"
	"github.com/barrixlabs/barrix-api/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// The webhook endpoint must stay outside the rate limiter so provider
	// retries are never throttled away. Signature checking is its gate.
	app.Post(constants.WebhookRoute, controllers.HandleBillingWebhook)

	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
	}))

	api.Get(constants.HealthRoute, func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	auth := api.Group(constants.AuthRoute)
	auth.Post("/register", controllers.HandleRegister)
	auth.Post("/login", controllers.HandleLogin)
	auth.Get("/me", middleware.AuthMiddleware(), controllers.HandleMe)

	usage := api.Group(constants.UsageRoute, middleware.AuthMiddleware())
	usage.Get("/check", controllers.HandleUsageCheck)
	usage.Post("/track", controllers.HandleUsageTrack)

	payments := api.Group(constants.PaymentsRoute)
	payments.Post("/create-checkout-session", middleware.AuthMiddleware(), controllers.HandleCreateCheckout)
}

// newLimiterStorage shares rate limiter counters across instances through
// Redis. Configuration is derived from the cache client so both point at the
// same server, with a separate database for limiter keys.
func newLimiterStorage() *redisstorage.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
