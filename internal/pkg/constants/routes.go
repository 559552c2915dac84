package constants

// Static route constants
const (
	APIRoute      = "/api"
	HealthRoute   = "/health"
	AuthRoute     = "/auth"
	UsageRoute    = "/usage"
	PaymentsRoute = "/payments"

	// Full webhook path, registered outside the rate-limited API group
	WebhookRoute = "/api/payments/webhook"
)
