package plans

import "testing"

func TestNormalizeTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{in: "free", want: TierFree},
		{in: "basic", want: TierBasic},
		{in: "standard", want: TierStandard},
		{in: "pro", want: TierPro},
		{in: "PRO", want: TierPro},
		{in: " basic ", want: TierBasic},
		{in: "enterprise", want: TierFree},
		{in: "", want: TierFree},
	}

	for _, tt := range tests {
		if got := NormalizeTier(tt.in); got != tt.want {
			t.Fatalf("NormalizeTier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuotaFor(t *testing.T) {
	tests := []struct {
		tier string
		want int
	}{
		{tier: "free", want: 10},
		{tier: "basic", want: 100},
		{tier: "standard", want: 500},
		{tier: "pro", want: 2000},
		{tier: "unknown", want: 10},
		{tier: "", want: 10},
	}

	for _, tt := range tests {
		if got := QuotaFor(tt.tier); got != tt.want {
			t.Fatalf("QuotaFor(%q) = %d, want %d", tt.tier, got, tt.want)
		}
	}
}

func TestByAmount(t *testing.T) {
	p, ok := ByAmount(1999)
	if !ok {
		t.Fatalf("expected 1999 cents to resolve")
	}
	if p.Tier != TierStandard || p.Limit != 500 {
		t.Fatalf("expected standard/500, got %s/%d", p.Tier, p.Limit)
	}

	if _, ok := ByAmount(1234); ok {
		t.Fatalf("expected unmatched amount to fail resolution")
	}
}

func TestByPriceID(t *testing.T) {
	table := Table()
	for _, want := range table {
		got, ok := ByPriceID(want.PriceID)
		if !ok {
			t.Fatalf("expected price %q to resolve", want.PriceID)
		}
		if got.Tier != want.Tier {
			t.Fatalf("price %q resolved to %q, want %q", want.PriceID, got.Tier, want.Tier)
		}
	}

	if _, ok := ByPriceID("price_nope"); ok {
		t.Fatalf("expected unknown price id to fail resolution")
	}
	if _, ok := ByPriceID(""); ok {
		t.Fatalf("expected empty price id to fail resolution")
	}
}
