package discount

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tripod-pricing/internal/pricing"
)

// Tier is the account-level discount tier stored on a client profile.
type Tier string

const (
	TierNone            Tier = "none"
	TierPowerLevel      Tier = "power_level"
	TierOMSSubscription Tier = "oms_subscription"
	TierEnterprise      Tier = "enterprise"
)

// CouponType distinguishes percentage coupons from fixed-amount coupons.
type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

// Coupon is a coupon that has already passed validation.
type Coupon struct {
	Code  string          `json:"code"`
	Type  CouponType      `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Breakdown describes how a base price was reduced.
type Breakdown struct {
	BasePrice           decimal.Decimal `json:"base_price"`
	TierPercent         decimal.Decimal `json:"tier_percent"`
	AfterClientDiscount decimal.Decimal `json:"after_client_discount"`
	ClientDiscount      decimal.Decimal `json:"client_discount"`
	CouponDiscount      decimal.Decimal `json:"coupon_discount"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	FinalPrice          decimal.Decimal `json:"final_price"`
	CouponApplied       bool            `json:"coupon_applied"`
}

// Stacker applies the client tier discount and then the coupon.
type Stacker struct {
	percents map[Tier]decimal.Decimal
}

// DefaultPercents returns the standard tier table.
func DefaultPercents() map[Tier]decimal.Decimal {
	return map[Tier]decimal.Decimal{
		TierNone:            decimal.Zero,
		TierPowerLevel:      decimal.NewFromInt(10),
		TierOMSSubscription: decimal.NewFromInt(15),
		TierEnterprise:      decimal.NewFromInt(20),
	}
}

// NewStacker builds a Stacker over the supplied percent table. A nil table
// uses DefaultPercents. The table is copied.
func NewStacker(percents map[Tier]decimal.Decimal) Stacker {
	if percents == nil {
		percents = DefaultPercents()
	}
	own := make(map[Tier]decimal.Decimal, len(percents))
	for k, v := range percents {
		own[NormalizeTier(string(k))] = v
	}
	return Stacker{percents: own}
}

// NormalizeTier lower-cases and trims a stored tier value. Blank means none.
func NormalizeTier(value string) Tier {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return TierNone
	}
	return Tier(v)
}

// Percent returns the discount percent for tier, or zero when unknown.
func (s Stacker) Percent(tier Tier) decimal.Decimal {
	pct, ok := s.percents[NormalizeTier(string(tier))]
	if !ok || pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero
	}
	return pct
}

// Apply reduces base by the client tier discount, rounded up to the cent,
// and then by the coupon. The final price never drops below zero.
func (s Stacker) Apply(base decimal.Decimal, tier Tier, coupon *Coupon) Breakdown {
	hundred := decimal.NewFromInt(100)
	pct := s.Percent(tier)
	afterClient := pricing.CeilCent(base.Mul(hundred.Sub(pct)).Div(hundred))

	out := Breakdown{
		BasePrice:           base,
		TierPercent:         pct,
		AfterClientDiscount: afterClient,
		ClientDiscount:      base.Sub(afterClient),
		CouponDiscount:      decimal.Zero,
		FinalPrice:          afterClient,
	}

	couponOff, ok := couponAmount(afterClient, coupon)
	if ok {
		out.CouponApplied = true
		out.FinalPrice = pricing.MaxZero(afterClient.Sub(couponOff))
		out.CouponDiscount = afterClient.Sub(out.FinalPrice)
	}
	out.DiscountAmount = base.Sub(out.FinalPrice)
	return out
}

// couponAmount returns the amount a coupon removes from amount. Unknown
// types and negative values are ignored. Only the tier step is rounded; the
// coupon amount is exact.
func couponAmount(amount decimal.Decimal, coupon *Coupon) (decimal.Decimal, bool) {
	if coupon == nil || coupon.Value.IsNegative() {
		return decimal.Zero, false
	}
	switch CouponType(strings.ToLower(strings.TrimSpace(string(coupon.Type)))) {
	case CouponPercentage:
		return amount.Mul(coupon.Value).Div(decimal.NewFromInt(100)), true
	case CouponFixed:
		return coupon.Value, true
	default:
		return decimal.Zero, false
	}
}
