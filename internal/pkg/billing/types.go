package billing

import "errors"

var (
	// ErrInvalidSignature means the webhook payload failed signature
	// verification and was not processed at all.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrUnknownPlan means the event's price amount matched no entry in the
	// configured price table. The event is rejected and the account untouched.
	ErrUnknownPlan = errors.New("no plan configured for price amount")

	// ErrAccountNotFound means the event's account reference resolved to no
	// local account. Reported, but never fatal to the ingestion pipeline.
	ErrAccountNotFound = errors.New("no account for billing event")
)

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
