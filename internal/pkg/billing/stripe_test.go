package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testStripeServer(t *testing.T, wantPath string, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Errorf("unexpected path %q, want %q", r.URL.Path, wantPath)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if r.Header.Get("Idempotency-Key") == "" {
			t.Errorf("missing idempotency key")
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func testStripeClient(baseURL string) *StripeClient {
	return &StripeClient{
		SecretKey:  "sk_test",
		APIBaseURL: baseURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestCreateCustomer(t *testing.T) {
	srv := testStripeServer(t, "/customers", http.StatusOK, `{"id":"cus_123"}`)
	defer srv.Close()

	id, err := testStripeClient(srv.URL).CreateCustomer(context.Background(), "user@example.com", 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "cus_123" {
		t.Fatalf("expected cus_123, got %q", id)
	}
}

func TestCreateCustomerMissingSecret(t *testing.T) {
	c := &StripeClient{HTTPClient: http.DefaultClient}
	if _, err := c.CreateCustomer(context.Background(), "user@example.com", 1); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	srv := testStripeServer(t, "/checkout/sessions", http.StatusOK, `{"id":"cs_1","url":"https://checkout.example/cs_1"}`)
	defer srv.Close()

	session, err := testStripeClient(srv.URL).CreateCheckoutSession(context.Background(), CheckoutSessionInput{
		CustomerID: "cus_123",
		PriceID:    "price_abc",
		UserID:     42,
		SuccessURL: "https://app.example/subscription/success",
		CancelURL:  "https://app.example/subscription/cancel",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.URL != "https://checkout.example/cs_1" {
		t.Fatalf("unexpected session url %q", session.URL)
	}
}

func TestCreateCheckoutSessionProviderError(t *testing.T) {
	srv := testStripeServer(t, "/checkout/sessions", http.StatusPaymentRequired, `{"error":{"message":"nope"}}`)
	defer srv.Close()

	_, err := testStripeClient(srv.URL).CreateCheckoutSession(context.Background(), CheckoutSessionInput{
		CustomerID: "cus_123",
		PriceID:    "price_abc",
	})
	if err == nil {
		t.Fatalf("expected provider error to surface")
	}
}

func TestCreateCheckoutSessionValidation(t *testing.T) {
	_, err := testStripeClient("http://unused").CreateCheckoutSession(context.Background(), CheckoutSessionInput{})
	if err == nil {
		t.Fatalf("expected missing customer/price to fail")
	}
}
