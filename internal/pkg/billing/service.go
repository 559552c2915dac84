package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/barrixlabs/barrix-api/app/models"
	"github.com/barrixlabs/barrix-api/internal/pkg/plans"
	"gorm.io/gorm"
)

// Service reconciles provider subscription events into local account state.
type Service struct {
	repo Repository
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// ApplySubscriptionEvent applies one lifecycle event as an absolute state
// assignment. Re-applying the same event is idempotent; events are never
// treated as deltas, so duplicates and stale redeliveries are harmless.
func (s *Service) ApplySubscriptionEvent(ctx context.Context, ev *SubscriptionEvent) error {
	_ = ctx
	if ev == nil {
		return errors.New("nil subscription event")
	}

	switch ev.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return s.applySubscriptionState(ev)
	case EventSubscriptionDeleted:
		return s.applySubscriptionDeleted(ev)
	default:
		// Unrecognized types are acknowledged upstream; nothing to do here.
		return nil
	}
}

func (s *Service) applySubscriptionState(ev *SubscriptionEvent) error {
	plan, ok := plans.ByAmount(ev.AmountCents)
	if !ok {
		return fmt.Errorf("%w: %d cents", ErrUnknownPlan, ev.AmountCents)
	}

	user, err := s.resolveAccount(ev)
	if err != nil {
		return err
	}

	status := ev.Status
	if status == "" {
		status = models.SubscriptionStatusActive
	}

	return s.repo.ApplySubscriptionState(user.ID, map[string]interface{}{
		"plan":                   string(plan.Tier),
		"stripe_subscription_id": ev.SubscriptionID,
		"stripe_price_id":        ev.PriceID,
		"subscription_status":    status,
		"current_period_start":   ev.CurrentPeriodStart,
		"current_period_end":     ev.CurrentPeriodEnd,
	})
}

func (s *Service) applySubscriptionDeleted(ev *SubscriptionEvent) error {
	user, err := s.resolveAccount(ev)
	if err != nil {
		return err
	}

	return s.repo.ApplySubscriptionState(user.ID, map[string]interface{}{
		"plan":                   string(plans.TierFree),
		"stripe_subscription_id": "",
		"stripe_price_id":        "",
		"subscription_status":    models.SubscriptionStatusCanceled,
	})
}

func (s *Service) resolveAccount(ev *SubscriptionEvent) (*models.User, error) {
	if ev.UserID != 0 {
		user, err := s.repo.GetUserByID(ev.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: account %d", ErrAccountNotFound, ev.UserID)
			}
			return nil, err
		}
		return user, nil
	}

	// No account id in the event metadata, fall back to the stored customer
	// reference from the checkout flow.
	if ev.CustomerID != "" {
		user, err := s.repo.GetUserByCustomerID(ev.CustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: customer %s", ErrAccountNotFound, ev.CustomerID)
			}
			return nil, err
		}
		return user, nil
	}

	return nil, fmt.Errorf("%w: subscription %s carries no account reference", ErrAccountNotFound, ev.SubscriptionID)
}

// NeedsProcessing reports whether a journaled delivery still has to be
// handled. Only deliveries that completed without a processing error are
// deduplicated; a delivery that failed mid-flight stays eligible so the
// provider's redelivery can pick it up.
func NeedsProcessing(created bool, event *models.BillingWebhookEvent) bool {
	if created {
		return true
	}
	if event == nil {
		return false
	}
	return event.ProcessedAt == nil || event.ProcessingError != ""
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
