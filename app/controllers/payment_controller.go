package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/barrixlabs/barrix-api/app/models"
	"github.com/barrixlabs/barrix-api/app/repository"
	"github.com/barrixlabs/barrix-api/internal/pkg/billing"
	"github.com/barrixlabs/barrix-api/internal/pkg/cache"
	"github.com/barrixlabs/barrix-api/internal/pkg/database"
	"github.com/barrixlabs/barrix-api/internal/pkg/env"
	"github.com/barrixlabs/barrix-api/internal/pkg/metrics/counter"
	"github.com/barrixlabs/barrix-api/internal/pkg/plans"
	"github.com/barrixlabs/barrix-api/internal/pkg/usercontext"
)

const webhookDedupTTL = 24 * time.Hour

type checkoutRequest struct {
	PriceID string `json:"priceId"`
}

// HandleCreateCheckout opens a hosted checkout session for one of the
// configured subscription prices. The provider customer is created lazily on
// first checkout and the reference stored on the account.
func HandleCreateCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	plan, ok := plans.ByPriceID(req.PriceID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid price ID"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(usercontext.GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		log.Printf("checkout lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create checkout session"})
	}

	client := billing.NewStripeClientFromEnv()

	if !user.HasBillingCustomer() {
		customerID, err := client.CreateCustomer(c.Context(), user.Email, user.ID)
		if err != nil {
			log.Printf("customer create failed for user %d: %v", user.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create checkout session"})
		}
		if err := repo.SetBillingCustomerRef(user.ID, customerID); err != nil {
			log.Printf("failed to store customer ref for user %d: %v", user.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create checkout session"})
		}
		user.StripeCustomerID = customerID
	}

	clientURL := env.GetEnv("CLIENT_URL", "http://localhost:3000")
	session, err := client.CreateCheckoutSession(c.Context(), billing.CheckoutSessionInput{
		CustomerID: user.StripeCustomerID,
		PriceID:    plan.PriceID,
		UserID:     user.ID,
		SuccessURL: clientURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  clientURL + "/billing/cancel",
	})
	if err != nil {
		log.Printf("checkout session create failed for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create checkout session"})
	}

	return c.JSON(fiber.Map{"url": session.URL})
}

// HandleBillingWebhook ingests provider webhook deliveries. Only a bad
// signature is rejected; every verified delivery is acknowledged with 200 so
// the provider stops retrying, except store failures which return 500 to get
// the event redelivered.
func HandleBillingWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	if !billing.VerifyStripeWebhookSignature(payload, signature, secret, time.Now()) {
		log.Printf("webhook rejected: %v", billing.ErrInvalidSignature)
		_ = counter.AddWebhookOutcome(counter.OutcomeRejected)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}

	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		log.Printf("webhook envelope parse failed: %v", err)
		return c.JSON(fiber.Map{"received": true})
	}

	// Fast duplicate drop. The key is written only once a delivery has been
	// fully handled, so a delivery that failed against the store stays
	// eligible for the provider's redelivery. Redis being down must never
	// block ingestion, the durable journal below catches duplicates anyway.
	dedupKey := ""
	if envelope.ID != "" {
		dedupKey = "billing:webhook:stripe:" + envelope.ID
		seen, err := cache.Has(dedupKey)
		if err != nil {
			log.Printf("webhook dedup cache unavailable: %v", err)
		} else if seen {
			_ = counter.AddWebhookOutcome(counter.OutcomeDuplicate)
			return c.JSON(fiber.Map{"received": true})
		}
	}

	svc := billing.NewServiceFromDB(database.GetDB())

	created, record, err := svc.RecordWebhookEvent(c.Context(), billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: envelope.ID,
		EventType:       envelope.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		log.Printf("webhook journal write failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to persist event"})
	}
	if !billing.NeedsProcessing(created, record) {
		_ = counter.AddWebhookOutcome(counter.OutcomeDuplicate)
		return ackWebhook(c, dedupKey)
	}

	if !billing.IsSubscriptionEvent(envelope.Type) {
		markProcessed(c, svc, record.ID, nil)
		_ = counter.AddWebhookOutcome(counter.OutcomeIrrelevant)
		return ackWebhook(c, dedupKey)
	}

	ev, err := billing.ParseSubscriptionEvent(payload)
	if err != nil {
		log.Printf("webhook event %s unparseable: %v", envelope.ID, err)
		markProcessed(c, svc, record.ID, err)
		_ = counter.AddWebhookOutcome(counter.OutcomeUnapplied)
		return ackWebhook(c, dedupKey)
	}

	if err := svc.ApplySubscriptionEvent(c.Context(), ev); err != nil {
		switch {
		case errors.Is(err, billing.ErrUnknownPlan), errors.Is(err, billing.ErrAccountNotFound):
			log.Printf("webhook event %s not applied: %v", envelope.ID, err)
			markProcessed(c, svc, record.ID, err)
			_ = counter.AddWebhookOutcome(counter.OutcomeUnapplied)
			return ackWebhook(c, dedupKey)
		default:
			log.Printf("webhook event %s apply failed: %v", envelope.ID, err)
			markProcessed(c, svc, record.ID, err)
			_ = counter.AddWebhookOutcome(counter.OutcomeFailed)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process event"})
		}
	}

	markProcessed(c, svc, record.ID, nil)
	_ = counter.AddWebhookOutcome(counter.OutcomeApplied)
	return ackWebhook(c, dedupKey)
}

// ackWebhook acknowledges a delivery and records the fast-path dedup key for
// it. Acknowledged deliveries are final, so later duplicates can be dropped
// before touching the store.
func ackWebhook(c *fiber.Ctx, dedupKey string) error {
	if dedupKey != "" {
		if err := cache.Set(dedupKey, "1", webhookDedupTTL); err != nil {
			log.Printf("webhook dedup cache write failed: %v", err)
		}
	}
	return c.JSON(fiber.Map{"received": true})
}

func markProcessed(c *fiber.Ctx, svc *billing.Service, id uint, processingErr error) {
	if err := svc.MarkWebhookProcessed(c.Context(), id, processingErr); err != nil {
		log.Printf("failed to mark webhook event %d processed: %v", id, err)
	}
}
