package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyStripeWebhookSignature(t *testing.T) {
	payload := []byte(`{"foo":"bar"}`)
	secret := "whsec_test"
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	header := signPayload(payload, secret, now)
	if !VerifyStripeWebhookSignature(payload, header, secret, now) {
		t.Fatalf("expected signature to validate")
	}

	if VerifyStripeWebhookSignature([]byte(`{"foo":"tampered"}`), header, secret, now) {
		t.Fatalf("expected tampered payload to fail")
	}
	if VerifyStripeWebhookSignature(payload, header, "whsec_other", now) {
		t.Fatalf("expected wrong secret to fail")
	}
	if VerifyStripeWebhookSignature(payload, "", secret, now) {
		t.Fatalf("expected empty header to fail")
	}
	if VerifyStripeWebhookSignature(payload, header, "", now) {
		t.Fatalf("expected empty secret to fail")
	}
}

func TestVerifyStripeWebhookSignatureTolerance(t *testing.T) {
	payload := []byte(`{"foo":"bar"}`)
	secret := "whsec_test"
	signed := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	header := signPayload(payload, secret, signed)

	if !VerifyStripeWebhookSignature(payload, header, secret, signed.Add(4*time.Minute)) {
		t.Fatalf("expected signature within tolerance to validate")
	}
	if VerifyStripeWebhookSignature(payload, header, secret, signed.Add(10*time.Minute)) {
		t.Fatalf("expected stale timestamp to fail")
	}
	if VerifyStripeWebhookSignature(payload, header, secret, signed.Add(-10*time.Minute)) {
		t.Fatalf("expected future timestamp to fail")
	}
}

func TestVerifyStripeWebhookSignatureMultipleCandidates(t *testing.T) {
	payload := []byte(`{"foo":"bar"}`)
	secret := "whsec_test"
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	valid := signPayload(payload, secret, now)
	header := fmt.Sprintf("t=%d,v1=deadbeef,%s", now.Unix(), valid[len(fmt.Sprintf("t=%d,", now.Unix())):])
	if !VerifyStripeWebhookSignature(payload, header, secret, now) {
		t.Fatalf("expected one valid candidate among several to validate")
	}

	if VerifyStripeWebhookSignature(payload, fmt.Sprintf("t=%d,v1=deadbeef", now.Unix()), secret, now) {
		t.Fatalf("expected all-invalid candidates to fail")
	}
}
