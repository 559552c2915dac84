package billing

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Subscription lifecycle event types recognized by the reconciler. Any other
// type is acknowledged without processing.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// SubscriptionEvent is the parsed form of a provider subscription event. It
// carries absolute state: applying the same event twice yields the same
// account state.
type SubscriptionEvent struct {
	EventID            string
	Type               string
	SubscriptionID     string
	CustomerID         string
	UserID             uint
	Status             string
	PriceID            string
	AmountCents        int64
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

// IsSubscriptionEvent reports whether the reconciler handles this event type.
func IsSubscriptionEvent(eventType string) bool {
	switch eventType {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		return true
	default:
		return false
	}
}

// ParseSubscriptionEvent decodes the provider wire shape
// {type, data:{object:{id, status, plan:{amount, id}, current_period_start,
// current_period_end, metadata:{userId}}}}.
func ParseSubscriptionEvent(payload []byte) (*SubscriptionEvent, error) {
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Plan   struct {
					ID     string `json:"id"`
					Amount int64  `json:"amount"`
				} `json:"plan"`
				Customer           string `json:"customer"`
				CurrentPeriodStart int64  `json:"current_period_start"`
				CurrentPeriodEnd   int64  `json:"current_period_end"`
				Metadata           struct {
					UserID string `json:"userId"`
				} `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}

	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	eventType := strings.TrimSpace(raw.Type)
	if eventType == "" {
		return nil, errors.New("webhook payload missing event type")
	}

	obj := raw.Data.Object
	if strings.TrimSpace(obj.ID) == "" {
		return nil, errors.New("webhook payload missing subscription id")
	}

	ev := &SubscriptionEvent{
		EventID:        strings.TrimSpace(raw.ID),
		Type:           eventType,
		SubscriptionID: strings.TrimSpace(obj.ID),
		CustomerID:     strings.TrimSpace(obj.Customer),
		Status:         strings.ToLower(strings.TrimSpace(obj.Status)),
		PriceID:        strings.TrimSpace(obj.Plan.ID),
		AmountCents:    obj.Plan.Amount,
	}

	if userID := strings.TrimSpace(obj.Metadata.UserID); userID != "" {
		id, err := strconv.ParseUint(userID, 10, 64)
		if err != nil {
			return nil, errors.New("webhook payload carries malformed account reference")
		}
		ev.UserID = uint(id)
	}

	if obj.CurrentPeriodStart > 0 {
		t := time.Unix(obj.CurrentPeriodStart, 0).UTC()
		ev.CurrentPeriodStart = &t
	}
	if obj.CurrentPeriodEnd > 0 {
		t := time.Unix(obj.CurrentPeriodEnd, 0).UTC()
		ev.CurrentPeriodEnd = &t
	}

	return ev, nil
}
