package discount

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyTierOnly(t *testing.T) {
	s := NewStacker(nil)
	got := s.Apply(dec("100"), TierPowerLevel, nil)
	if got.AfterClientDiscount.StringFixed(2) != "90.00" {
		t.Fatalf("expected 90.00, got %s", got.AfterClientDiscount)
	}
	if !got.FinalPrice.Equal(got.AfterClientDiscount) {
		t.Fatalf("final should equal after-client without coupon")
	}
	if got.DiscountAmount.StringFixed(2) != "10.00" {
		t.Fatalf("expected 10.00 discount, got %s", got.DiscountAmount)
	}
}

func TestApplyCeilsToCent(t *testing.T) {
	s := NewStacker(map[Tier]decimal.Decimal{"thirds": dec("33.333")})
	got := s.Apply(dec("50.00"), "thirds", nil)
	// 50 * 0.66667 = 33.3335
	if got.AfterClientDiscount.StringFixed(2) != "33.34" {
		t.Fatalf("expected ceiling to 33.34, got %s", got.AfterClientDiscount)
	}

	got = NewStacker(nil).Apply(dec("39.21"), TierOMSSubscription, nil)
	// 39.21 * 0.85 = 33.3285
	if got.AfterClientDiscount.StringFixed(2) != "33.33" {
		t.Fatalf("expected 33.33, got %s", got.AfterClientDiscount)
	}
	got = NewStacker(nil).Apply(dec("39.22"), TierOMSSubscription, nil)
	// 39.22 * 0.85 = 33.337
	if got.AfterClientDiscount.StringFixed(2) != "33.34" {
		t.Fatalf("expected 33.34, got %s", got.AfterClientDiscount)
	}
}

func TestApplyOrderTierThenCoupon(t *testing.T) {
	s := NewStacker(nil)
	coupon := &Coupon{Code: "TEN", Type: CouponPercentage, Value: dec("10")}
	got := s.Apply(dec("100"), TierEnterprise, coupon)
	if got.AfterClientDiscount.StringFixed(2) != "80.00" {
		t.Fatalf("expected 80.00 after tier, got %s", got.AfterClientDiscount)
	}
	if got.FinalPrice.StringFixed(2) != "72.00" {
		t.Fatalf("expected 72.00, got %s", got.FinalPrice)
	}
	if got.FinalPrice.Equal(dec("70")) {
		t.Fatal("coupon must apply to the discounted amount, not the base")
	}
	if got.DiscountAmount.StringFixed(2) != "28.00" {
		t.Fatalf("expected 28.00 discount, got %s", got.DiscountAmount)
	}
}

func TestApplyFixedCoupon(t *testing.T) {
	s := NewStacker(nil)
	coupon := &Coupon{Code: "TENOFF", Type: CouponFixed, Value: dec("10")}
	got := s.Apply(dec("108.00"), TierOMSSubscription, coupon)
	if got.AfterClientDiscount.StringFixed(2) != "91.80" {
		t.Fatalf("expected 91.80, got %s", got.AfterClientDiscount)
	}
	if got.FinalPrice.StringFixed(2) != "81.80" {
		t.Fatalf("expected 81.80, got %s", got.FinalPrice)
	}
	if got.DiscountAmount.StringFixed(2) != "26.20" {
		t.Fatalf("expected 26.20, got %s", got.DiscountAmount)
	}
}

func TestApplyFixedCouponClampsToZero(t *testing.T) {
	got := NewStacker(nil).Apply(dec("20"), TierNone, &Coupon{Type: CouponFixed, Value: dec("50")})
	if !got.FinalPrice.IsZero() {
		t.Fatalf("expected 0, got %s", got.FinalPrice)
	}
	if got.DiscountAmount.StringFixed(2) != "20.00" {
		t.Fatalf("expected full discount, got %s", got.DiscountAmount)
	}
	if got.CouponDiscount.StringFixed(2) != "20.00" {
		t.Fatalf("coupon discount should be clamped, got %s", got.CouponDiscount)
	}
}

func TestApplyUnknownTierAndMalformedCoupon(t *testing.T) {
	s := NewStacker(nil)
	got := s.Apply(dec("100"), "platinum", &Coupon{Type: "bogus", Value: dec("10")})
	if !got.FinalPrice.Equal(dec("100")) {
		t.Fatalf("expected no discount, got %s", got.FinalPrice)
	}
	if got.CouponApplied {
		t.Fatal("malformed coupon should not apply")
	}
	got = s.Apply(dec("100"), "", &Coupon{Type: CouponFixed, Value: dec("-5")})
	if !got.FinalPrice.Equal(dec("100")) {
		t.Fatalf("negative coupon value should be ignored, got %s", got.FinalPrice)
	}
}

func TestPercentTableIsIsolated(t *testing.T) {
	table := DefaultPercents()
	s := NewStacker(table)
	table[TierEnterprise] = dec("90")
	if !s.Percent(TierEnterprise).Equal(dec("20")) {
		t.Fatal("stacker must not observe later mutation of the input table")
	}
	if !s.Percent("ENTERPRISE").Equal(dec("20")) {
		t.Fatal("tier lookup should be case-insensitive")
	}
}

func TestApplyPercentageCouponIsNotRounded(t *testing.T) {
	coupon := &Coupon{Code: "SPRING15", Type: CouponPercentage, Value: dec("15")}
	got := NewStacker(nil).Apply(dec("91.81"), TierNone, coupon)
	// 91.81 * 0.15 = 13.7715
	if !got.CouponDiscount.Equal(dec("13.7715")) {
		t.Fatalf("expected exact coupon discount 13.7715, got %s", got.CouponDiscount)
	}
	if !got.FinalPrice.Equal(dec("78.0385")) {
		t.Fatalf("expected 78.0385, got %s", got.FinalPrice)
	}
	if !got.DiscountAmount.Equal(dec("13.7715")) {
		t.Fatalf("expected 13.7715 total discount, got %s", got.DiscountAmount)
	}
}
