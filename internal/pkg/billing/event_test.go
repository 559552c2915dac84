package billing

import (
	"testing"
	"time"
)

func TestParseSubscriptionEvent(t *testing.T) {
	raw := []byte(`{
		"id": "evt_123",
		"type": "customer.subscription.updated",
		"data": {
			"object": {
				"id": "sub_456",
				"status": "active",
				"customer": "cus_789",
				"plan": { "id": "price_abc", "amount": 1999 },
				"current_period_start": 1740787200,
				"current_period_end": 1743465600,
				"metadata": { "userId": "42" }
			}
		}
	}`)

	ev, err := ParseSubscriptionEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.EventID != "evt_123" || ev.Type != EventSubscriptionUpdated {
		t.Fatalf("unexpected event identity: %q %q", ev.EventID, ev.Type)
	}
	if ev.SubscriptionID != "sub_456" || ev.CustomerID != "cus_789" {
		t.Fatalf("unexpected refs: %q %q", ev.SubscriptionID, ev.CustomerID)
	}
	if ev.UserID != 42 {
		t.Fatalf("expected user id 42, got %d", ev.UserID)
	}
	if ev.PriceID != "price_abc" || ev.AmountCents != 1999 {
		t.Fatalf("unexpected plan: %q %d", ev.PriceID, ev.AmountCents)
	}
	if ev.Status != "active" {
		t.Fatalf("unexpected status: %q", ev.Status)
	}
	if ev.CurrentPeriodStart == nil || !ev.CurrentPeriodStart.Equal(time.Unix(1740787200, 0)) {
		t.Fatalf("unexpected period start: %v", ev.CurrentPeriodStart)
	}
	if ev.CurrentPeriodEnd == nil || !ev.CurrentPeriodEnd.Equal(time.Unix(1743465600, 0)) {
		t.Fatalf("unexpected period end: %v", ev.CurrentPeriodEnd)
	}
}

func TestParseSubscriptionEventMissingFields(t *testing.T) {
	if _, err := ParseSubscriptionEvent([]byte(`{"data":{"object":{"id":"sub_1"}}}`)); err == nil {
		t.Fatalf("expected missing type to fail")
	}
	if _, err := ParseSubscriptionEvent([]byte(`{"type":"customer.subscription.updated","data":{"object":{}}}`)); err == nil {
		t.Fatalf("expected missing subscription id to fail")
	}
	if _, err := ParseSubscriptionEvent([]byte(`not-json`)); err == nil {
		t.Fatalf("expected malformed json to fail")
	}
}

func TestParseSubscriptionEventMalformedUserRef(t *testing.T) {
	raw := []byte(`{
		"type": "customer.subscription.updated",
		"data": { "object": { "id": "sub_1", "metadata": { "userId": "not-a-number" } } }
	}`)
	if _, err := ParseSubscriptionEvent(raw); err == nil {
		t.Fatalf("expected malformed account reference to fail")
	}
}

func TestParseSubscriptionEventNoUserRef(t *testing.T) {
	raw := []byte(`{
		"type": "customer.subscription.deleted",
		"data": { "object": { "id": "sub_1" } }
	}`)
	ev, err := ParseSubscriptionEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.UserID != 0 {
		t.Fatalf("expected zero user id, got %d", ev.UserID)
	}
	if ev.CurrentPeriodStart != nil || ev.CurrentPeriodEnd != nil {
		t.Fatalf("expected nil period bounds")
	}
}

func TestIsSubscriptionEvent(t *testing.T) {
	for _, typ := range []string{EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted} {
		if !IsSubscriptionEvent(typ) {
			t.Fatalf("expected %q to be handled", typ)
		}
	}
	for _, typ := range []string{"invoice.paid", "checkout.session.completed", ""} {
		if IsSubscriptionEvent(typ) {
			t.Fatalf("expected %q to be ignored", typ)
		}
	}
}
