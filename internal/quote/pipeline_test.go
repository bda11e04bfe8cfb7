package quote

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tripod-pricing/internal/discount"
	"github.com/noah-isme/tripod-pricing/internal/pricing"
	"github.com/noah-isme/tripod-pricing/internal/tier"
	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func logoCleanup() pricing.ServiceDefinition {
	return pricing.ServiceDefinition{
		ID:        "svc-logo",
		Title:     "Logo Cleanup",
		Structure: pricing.StructureQuantity,
		Tiers: []pricing.Tier{
			{Label: "1-50", Amount: dec("2.00")},
			{Label: "51-75", Amount: dec("1.80")},
			{Label: ">101", Amount: dec("1.30")},
		},
	}
}

func logoAgreements() vendorcost.Agreements {
	return vendorcost.Agreements{"v1": {VendorID: "v1", Services: map[string]vendorcost.Rate{
		"Logo Cleanup": {Quantity: []tier.Entry{{Label: "1-100", Amount: dec("0.75")}, {Label: "100+", Amount: dec("0.60")}}},
	}}}
}

func TestResolveLogoCleanupScenario(t *testing.T) {
	out := Resolve(discount.NewStacker(nil), Input{
		Service:    logoCleanup(),
		Form:       pricing.FormData{"amount_of_products": "60"},
		ClientTier: discount.TierOMSSubscription,
		Coupon:     &discount.Coupon{Code: "TENOFF", Type: discount.CouponFixed, Value: dec("10")},
		Assignee:   &vendorcost.Assignee{ID: "v1", Role: vendorcost.RoleVendor},
		Agreements: logoAgreements(),
	})
	require.True(t, out.Available)
	require.Equal(t, "108.00", out.RetailPrice.StringFixed(2))
	require.Equal(t, "91.80", out.Breakdown.AfterClientDiscount.StringFixed(2))
	require.Equal(t, "81.80", out.FinalPrice.StringFixed(2))
	require.Equal(t, "26.20", out.DiscountAmount.StringFixed(2))
	require.Equal(t, "45.00", out.VendorCost.StringFixed(2))
	require.Equal(t, "36.80", out.Profit.StringFixed(2))
	require.Equal(t, "TENOFF", out.CouponCode)
	require.Equal(t, "1.80", out.UnitPrice.StringFixed(2))
}

func TestResolveOpenEndedTier(t *testing.T) {
	out := Resolve(discount.NewStacker(nil), Input{
		Service: logoCleanup(),
		Form:    pricing.FormData{"amount_of_products": 150},
	})
	require.Equal(t, "195.00", out.RetailPrice.StringFixed(2))
	require.Equal(t, "195.00", out.FinalPrice.StringFixed(2))
	require.Equal(t, vendorcost.ProvenanceUnassigned, out.CostProvenance)
	require.Equal(t, "195.00", out.Profit.StringFixed(2))
}

func TestResolveStoredPriceIsNotRediscounted(t *testing.T) {
	stored := dec("50.00")
	svc := logoCleanup()
	svc.Tiers[1].Amount = dec("3.00")
	out := Resolve(discount.NewStacker(nil), Input{
		Service:          svc,
		Form:             pricing.FormData{"amount_of_products": "60"},
		StoredFinalPrice: &stored,
		ClientTier:       discount.TierEnterprise,
		Coupon:           &discount.Coupon{Type: discount.CouponFixed, Value: dec("10")},
	})
	require.Equal(t, "50.00", out.FinalPrice.StringFixed(2))
	require.Equal(t, "50.00", out.RetailPrice.StringFixed(2))
	require.True(t, out.DiscountAmount.IsZero())
	require.Nil(t, out.Breakdown)
	require.Empty(t, out.CouponCode)
}

func TestResolveUnavailableSkipsDiscount(t *testing.T) {
	out := Resolve(discount.NewStacker(nil), Input{
		Service:    logoCleanup(),
		Form:       pricing.FormData{"amount_of_products": "90"},
		Assignee:   &vendorcost.Assignee{ID: "v1", Role: vendorcost.RoleVendor},
		Agreements: logoAgreements(),
	})
	require.False(t, out.Available)
	require.Equal(t, pricing.ReasonNoTierMatch, out.Reason)
	require.True(t, out.FinalPrice.IsZero())
	require.Nil(t, out.Breakdown)
	require.Equal(t, "67.50", out.VendorCost.StringFixed(2))
	require.Equal(t, "-67.50", out.Profit.StringFixed(2))
}

func TestResolveBundle(t *testing.T) {
	bundle := pricing.Bundle{ID: "b1", Title: "Brand Kit", Price: dec("499.00")}
	out := Resolve(discount.NewStacker(nil), Input{
		Bundle:      &bundle,
		ClientTier:  discount.TierPowerLevel,
		Assignee:    &vendorcost.Assignee{ID: "m1", Role: vendorcost.RoleVendorMember, ParentVendorID: "v1"},
		BundleCosts: vendorcost.BundleCosts{{VendorID: "v1", BundleID: "b1"}: dec("120")},
	})
	require.Equal(t, pricing.SourceBundle, out.PriceSource)
	require.Equal(t, "449.10", out.FinalPrice.StringFixed(2))
	require.Equal(t, "120.00", out.VendorCost.StringFixed(2))
	require.Equal(t, "329.10", out.Profit.StringFixed(2))
}

func TestRedact(t *testing.T) {
	out := ResolvedPrice{FinalPrice: dec("10"), VendorCost: dec("4"), Profit: dec("6"), VendorID: "v1", CostProvenance: vendorcost.ProvenanceAgreement}
	red := out.Redact()
	require.Equal(t, "10", red.FinalPrice.String())

	raw, err := json.Marshal(red)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, hidden := range []string{"vendor_cost", "profit", "vendor_id", "cost_provenance"} {
		require.NotContains(t, fields, hidden)
	}
}
