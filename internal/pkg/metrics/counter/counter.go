package counter

import (
	"context"
	"strconv"

	"github.com/barrixlabs/barrix-api/internal/pkg/cache"
)

const (
	webhookOutcomesKey = "billing:counters:webhook_outcomes"
	usageTrackedKey    = "usage:counters:tracked"
)

// Webhook outcome labels.
const (
	OutcomeApplied    = "applied"
	OutcomeDuplicate  = "duplicate"
	OutcomeRejected   = "rejected"
	OutcomeUnapplied  = "unapplied"
	OutcomeFailed     = "failed"
	OutcomeIrrelevant = "irrelevant"
)

// AddWebhookOutcome increments the counter for one webhook delivery outcome.
// Counters are best effort, processing never depends on them.
func AddWebhookOutcome(outcome string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookOutcomesKey, outcome, 1).Err()
}

// AddTrackedCall increments the per-plan tracked call counter.
func AddTrackedCall(plan string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, usageTrackedKey, plan, 1).Err()
}

// WebhookOutcomes returns the accumulated webhook outcome counters.
func WebhookOutcomes() (map[string]int64, error) {
	return readHash(webhookOutcomesKey)
}

// TrackedCalls returns the accumulated per-plan tracked call counters.
func TrackedCalls() (map[string]int64, error) {
	return readHash(usageTrackedKey)
}

func readHash(key string) (map[string]int64, error) {
	ctx := context.Background()
	raw, err := cache.GetClient().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(raw))
	for field, value := range raw {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}
