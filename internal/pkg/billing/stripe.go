package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/barrixlabs/barrix-api/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// StripeClient talks to the billing provider's REST API. Only the two calls
// the checkout flow needs are implemented.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewStripeClientFromEnv builds a client from process configuration.
func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateCustomer registers the account with the billing provider and returns
// the provider customer id. The local account id travels in metadata so
// webhook events can be routed back.
func (c *StripeClient) CreateCustomer(ctx context.Context, email string, userID uint) (string, error) {
	form := url.Values{}
	form.Set("email", strings.TrimSpace(email))
	form.Set("metadata[userId]", strconv.FormatUint(uint64(userID), 10))

	var out struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, "/customers", form, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", errors.New("stripe customer response missing id")
	}
	return out.ID, nil
}

// CheckoutSessionInput carries everything needed for a subscription-mode
// checkout session.
type CheckoutSessionInput struct {
	CustomerID string
	PriceID    string
	UserID     uint
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the subset of the provider response the caller needs.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession opens a hosted checkout for one subscription.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	if strings.TrimSpace(in.CustomerID) == "" || strings.TrimSpace(in.PriceID) == "" {
		return nil, errors.New("customer and price are required")
	}

	form := url.Values{}
	form.Set("customer", in.CustomerID)
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", in.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", in.SuccessURL)
	form.Set("cancel_url", in.CancelURL)
	form.Set("metadata[userId]", strconv.FormatUint(uint64(in.UserID), 10))
	form.Set("subscription_data[metadata][userId]", strconv.FormatUint(uint64(in.UserID), 10))

	var out CheckoutSession
	if err := c.postForm(ctx, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.URL) == "" {
		return nil, errors.New("stripe checkout response missing url")
	}
	return &out, nil
}

func (c *StripeClient) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("stripe request %s failed: status=%d body=%s", path, resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, out)
}
