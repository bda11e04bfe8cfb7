package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tripod-pricing/internal/discount"
)

var (
	// ErrNotEligible is returned when the coupon cannot be applied to the request.
	ErrNotEligible = errors.New("coupon not eligible")
	// ErrUsageLimitReached indicates the coupon has exhausted its global quota.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrPerClientLimitReached indicates the client has used up their allowance.
	ErrPerClientLimitReached = errors.New("coupon per-client usage limit reached")
	// ErrInactive is returned before the validity window opens or for disabled coupons.
	ErrInactive = errors.New("coupon not active")
	// ErrExpired is returned once the validity window has closed.
	ErrExpired = errors.New("coupon expired")
	// ErrMinimumSpendUnmet indicates the discounted price is below the coupon minimum.
	ErrMinimumSpendUnmet = errors.New("coupon minimum spend not met")
	// ErrCodeTaken is returned when creating a coupon whose code already exists.
	ErrCodeTaken = errors.New("coupon code already exists")
	// ErrInvalidRule wraps field errors when creating a coupon.
	ErrInvalidRule = errors.New("invalid coupon")
)

// Rule is a stored coupon and its constraints.
type Rule struct {
	ID             string              `json:"id"`
	Code           string              `json:"code"`
	Type           discount.CouponType `json:"type"`
	Value          decimal.Decimal     `json:"value"`
	MinSpend       decimal.Decimal     `json:"min_spend"`
	UsageLimit     *int32              `json:"usage_limit,omitempty"`
	UsedCount      int32               `json:"used_count"`
	PerClientLimit *int32              `json:"per_client_limit,omitempty"`
	ValidFrom      *time.Time          `json:"valid_from,omitempty"`
	ValidTo        *time.Time          `json:"valid_to,omitempty"`
	ServiceIDs     []string            `json:"service_ids,omitempty"`
	BundleIDs      []string            `json:"bundle_ids,omitempty"`
	Active         bool                `json:"active"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Target is what a coupon is being applied to.
type Target struct {
	Code      string
	ClientID  string
	ServiceID string
	BundleID  string
	// Amount is the price after the client tier discount.
	Amount decimal.Decimal
}

// Validate checks the rule at now against an amount and the client's prior
// usage. limit is the effective per-client limit, zero meaning unlimited.
func (r Rule) Validate(now time.Time, amount decimal.Decimal, clientUsed, limit int32) error {
	if !r.Active {
		return ErrInactive
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrExpired
	}
	if amount.LessThan(r.MinSpend) {
		return ErrMinimumSpendUnmet
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	if limit > 0 && clientUsed >= limit {
		return ErrPerClientLimitReached
	}
	return nil
}

// Applies reports whether the rule covers the service or bundle. Unscoped
// rules cover everything.
func (r Rule) Applies(serviceID, bundleID string) bool {
	if len(r.ServiceIDs) == 0 && len(r.BundleIDs) == 0 {
		return true
	}
	if serviceID != "" && containsFold(r.ServiceIDs, serviceID) {
		return true
	}
	return bundleID != "" && containsFold(r.BundleIDs, bundleID)
}

// Coupon converts the rule into the stacker's coupon value.
func (r Rule) Coupon() discount.Coupon {
	return discount.Coupon{Code: r.Code, Type: r.Type, Value: r.Value}
}

// EffectiveLimit returns the per-client limit, falling back to def.
func (r Rule) EffectiveLimit(def int) int32 {
	if r.PerClientLimit != nil && *r.PerClientLimit > 0 {
		return *r.PerClientLimit
	}
	if def > 0 {
		return int32(def)
	}
	return 0
}

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}
