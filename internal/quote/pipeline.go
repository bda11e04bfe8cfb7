package quote

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tripod-pricing/internal/discount"
	"github.com/noah-isme/tripod-pricing/internal/pricing"
	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

// ResolvedPrice is the full price, discount, cost and profit view of one request.
type ResolvedPrice struct {
	RetailPrice    decimal.Decimal       `json:"retail_price"`
	DiscountAmount decimal.Decimal       `json:"discount_amount"`
	FinalPrice     decimal.Decimal       `json:"final_price"`
	VendorCost     decimal.Decimal       `json:"vendor_cost"`
	Profit         decimal.Decimal       `json:"profit"`
	Available      bool                  `json:"available"`
	PriceSource    pricing.Source        `json:"price_source"`
	Reason         string                `json:"reason,omitempty"`
	Quantity       int64                 `json:"quantity,omitempty"`
	UnitPrice      *decimal.Decimal      `json:"unit_price,omitempty"`
	ClientTier     discount.Tier         `json:"client_tier"`
	CouponCode     string                `json:"coupon_code,omitempty"`
	Breakdown      *discount.Breakdown   `json:"breakdown,omitempty"`
	CostProvenance vendorcost.Provenance `json:"cost_provenance,omitempty"`
	VendorID       string                `json:"vendor_id,omitempty"`
}

// ClientPrice is the view of a ResolvedPrice for callers that may only see
// what they pay. Cost, profit and vendor identity are absent, not zeroed.
type ClientPrice struct {
	RetailPrice    decimal.Decimal     `json:"retail_price"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	FinalPrice     decimal.Decimal     `json:"final_price"`
	Available      bool                `json:"available"`
	PriceSource    pricing.Source      `json:"price_source"`
	Reason         string              `json:"reason,omitempty"`
	Quantity       int64               `json:"quantity,omitempty"`
	UnitPrice      *decimal.Decimal    `json:"unit_price,omitempty"`
	ClientTier     discount.Tier       `json:"client_tier"`
	CouponCode     string              `json:"coupon_code,omitempty"`
	Breakdown      *discount.Breakdown `json:"breakdown,omitempty"`
}

// Redact drops the internal cost view for callers that may only see prices.
func (p ResolvedPrice) Redact() ClientPrice {
	return ClientPrice{
		RetailPrice:    p.RetailPrice,
		DiscountAmount: p.DiscountAmount,
		FinalPrice:     p.FinalPrice,
		Available:      p.Available,
		PriceSource:    p.PriceSource,
		Reason:         p.Reason,
		Quantity:       p.Quantity,
		UnitPrice:      p.UnitPrice,
		ClientTier:     p.ClientTier,
		CouponCode:     p.CouponCode,
		Breakdown:      p.Breakdown,
	}
}

// Input is everything one pipeline run needs. Exactly one of Service or
// Bundle is priced; Bundle wins when set.
type Input struct {
	Service          pricing.ServiceDefinition
	Bundle           *pricing.Bundle
	Form             pricing.FormData
	StoredFinalPrice *decimal.Decimal
	ClientTier       discount.Tier
	Coupon           *discount.Coupon
	Assignee         *vendorcost.Assignee
	Agreements       vendorcost.Agreements
	BundleCosts      vendorcost.BundleCosts
}

// Resolve runs price, discount, cost and profit in order. A stored final
// price is taken as is and no discount is applied on top of it.
func Resolve(stacker discount.Stacker, in Input) ResolvedPrice {
	var (
		res  pricing.Resolution
		cost vendorcost.Cost
	)
	if in.Bundle != nil {
		res = pricing.ResolveBundlePrice(*in.Bundle, in.StoredFinalPrice)
		cost = vendorcost.ResolveBundle(in.Bundle.ID, in.Assignee, in.BundleCosts)
	} else {
		res = pricing.ResolveRetailPrice(in.Service, in.Form, in.StoredFinalPrice)
		cost = vendorcost.Resolve(in.Service, in.Form, in.Assignee, in.Agreements)
	}

	out := ResolvedPrice{
		RetailPrice:    res.Amount,
		DiscountAmount: decimal.Zero,
		FinalPrice:     res.Amount,
		VendorCost:     cost.Amount,
		Available:      res.Available,
		PriceSource:    res.Source,
		Reason:         res.Reason,
		Quantity:       res.Quantity,
		ClientTier:     discount.NormalizeTier(string(in.ClientTier)),
		CostProvenance: cost.Provenance,
		VendorID:       cost.VendorID,
	}
	if !res.UnitPrice.IsZero() {
		unit := res.UnitPrice
		out.UnitPrice = &unit
	}

	if res.Available && res.Source != pricing.SourceStored {
		b := stacker.Apply(res.Amount, out.ClientTier, in.Coupon)
		out.Breakdown = &b
		out.DiscountAmount = b.DiscountAmount
		out.FinalPrice = b.FinalPrice
		if b.CouponApplied && in.Coupon != nil {
			out.CouponCode = in.Coupon.Code
		}
	}
	out.Profit = out.FinalPrice.Sub(out.VendorCost)
	return out
}
