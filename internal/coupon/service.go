package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tripod-pricing/internal/discount"
)

// Querier captures the database methods required by the coupon service.
type Querier interface {
	GetCouponByCode(ctx context.Context, code string) (Rule, error)
	CountCouponUsageByClient(ctx context.Context, couponID, clientID string) (int64, error)
	CreateCoupon(ctx context.Context, rule Rule) (Rule, error)
}

// PreviewResult describes a coupon evaluated against an amount without
// recording usage.
type PreviewResult struct {
	Code           string          `json:"code"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	FinalPrice     decimal.Decimal `json:"final_price"`
}

// Service validates coupons for the pricing pipeline.
type Service struct {
	Q                     Querier
	Now                   func() time.Time
	DefaultPerClientLimit int
}

// Validate loads the coupon for target.Code and checks every constraint.
// The returned coupon is ready for the discount stacker.
func (s *Service) Validate(ctx context.Context, target Target) (discount.Coupon, error) {
	rule, err := s.check(ctx, target)
	if err != nil {
		return discount.Coupon{}, err
	}
	return rule.Coupon(), nil
}

// Preview validates the coupon and reports what it would remove from
// target.Amount.
func (s *Service) Preview(ctx context.Context, target Target) (PreviewResult, error) {
	rule, err := s.check(ctx, target)
	if err != nil {
		return PreviewResult{}, err
	}
	c := rule.Coupon()
	b := discount.NewStacker(nil).Apply(target.Amount, discount.TierNone, &c)
	if !b.CouponApplied || !b.CouponDiscount.IsPositive() {
		return PreviewResult{}, ErrNotEligible
	}
	return PreviewResult{
		Code:           rule.Code,
		Type:           string(rule.Type),
		Amount:         target.Amount,
		CouponDiscount: b.CouponDiscount,
		FinalPrice:     b.FinalPrice,
	}, nil
}

// Create stores a new coupon after normalising and checking its fields.
func (s *Service) Create(ctx context.Context, rule Rule) (Rule, error) {
	if s == nil || s.Q == nil {
		return Rule{}, errors.New("coupon service not configured")
	}
	rule.Code = NormalizeCode(rule.Code)
	rule.Type = discount.CouponType(strings.ToLower(strings.TrimSpace(string(rule.Type))))
	if rule.Code == "" {
		return Rule{}, invalid("code is required")
	}
	switch rule.Type {
	case discount.CouponPercentage:
		if rule.Value.GreaterThan(decimal.NewFromInt(100)) {
			return Rule{}, invalid("percentage value must not exceed 100")
		}
	case discount.CouponFixed:
	default:
		return Rule{}, invalid("invalid type")
	}
	if !rule.Value.IsPositive() {
		return Rule{}, invalid("value must be positive")
	}
	if rule.MinSpend.IsNegative() {
		return Rule{}, invalid("min spend must not be negative")
	}
	if rule.ValidFrom != nil && rule.ValidTo != nil && rule.ValidTo.Before(*rule.ValidFrom) {
		return Rule{}, invalid("valid_to must be after valid_from")
	}
	return s.Q.CreateCoupon(ctx, rule)
}

func (s *Service) check(ctx context.Context, target Target) (Rule, error) {
	if s == nil || s.Q == nil {
		return Rule{}, errors.New("coupon service not configured")
	}
	code := NormalizeCode(target.Code)
	if code == "" {
		return Rule{}, fmt.Errorf("code is required: %w", ErrNotEligible)
	}
	rule, err := s.Q.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrNotEligible
		}
		return Rule{}, err
	}
	if !rule.Applies(target.ServiceID, target.BundleID) {
		return Rule{}, ErrNotEligible
	}

	var used int32
	limit := rule.EffectiveLimit(s.DefaultPerClientLimit)
	if limit > 0 && strings.TrimSpace(target.ClientID) != "" {
		n, err := s.Q.CountCouponUsageByClient(ctx, rule.ID, target.ClientID)
		if err != nil {
			return Rule{}, err
		}
		used = int32(n)
	}
	if err := rule.Validate(s.now(), target.Amount, used, limit); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRule, msg)
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
