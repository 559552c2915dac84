package plans

import (
	"strings"

	"github.com/barrixlabs/barrix-api/internal/pkg/env"
)

type Tier string

const (
	TierFree     Tier = "free"
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierPro      Tier = "pro"
)

// FreeLimit is the monthly call allowance for accounts without a paid plan.
// Unknown tiers fall back to it as well.
const FreeLimit = 10

// Plan describes one paid tier of the fixed price table: the provider price
// reference, the monthly amount in cents and the call allowance.
type Plan struct {
	Tier        Tier
	PriceID     string
	AmountCents int64
	Limit       int
}

// Table returns the active price table. Price references come from
// configuration so the table can follow the billing provider without a
// rebuild; amounts and limits are fixed.
func Table() []Plan {
	return []Plan{
		{
			Tier:        TierBasic,
			PriceID:     env.GetEnv("STRIPE_PRICE_BASIC", "price_1S1ey92NVoDUUEoeuvmjGtVn"),
			AmountCents: 999,
			Limit:       100,
		},
		{
			Tier:        TierStandard,
			PriceID:     env.GetEnv("STRIPE_PRICE_STANDARD", "price_1S1ezv2NVoDUUEoeaRcSrjBt"),
			AmountCents: 1999,
			Limit:       500,
		},
		{
			Tier:        TierPro,
			PriceID:     env.GetEnv("STRIPE_PRICE_PRO", "price_1S1f1H2NVoDUUEoeSFbgLGxO"),
			AmountCents: 3999,
			Limit:       2000,
		},
	}
}

// NormalizeTier maps arbitrary input to a known tier, defaulting to free.
func NormalizeTier(tier string) Tier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case string(TierBasic):
		return TierBasic
	case string(TierStandard):
		return TierStandard
	case string(TierPro):
		return TierPro
	default:
		return TierFree
	}
}

// QuotaFor returns the monthly call limit for a tier. Unknown or missing
// tiers get the free limit.
func QuotaFor(tier string) int {
	switch NormalizeTier(tier) {
	case TierBasic, TierStandard, TierPro:
		for _, p := range Table() {
			if p.Tier == NormalizeTier(tier) {
				return p.Limit
			}
		}
	}
	return FreeLimit
}

// ByPriceID resolves a provider price reference against the table.
func ByPriceID(priceID string) (Plan, bool) {
	id := strings.TrimSpace(priceID)
	if id == "" {
		return Plan{}, false
	}
	for _, p := range Table() {
		if p.PriceID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// ByAmount resolves a monthly amount in cents against the table. The match
// is exact; amounts outside the table do not map to any tier.
func ByAmount(cents int64) (Plan, bool) {
	for _, p := range Table() {
		if p.AmountCents == cents {
			return p, true
		}
	}
	return Plan{}, false
}
