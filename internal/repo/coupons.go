package repo

import (
	"context"
	"strings"

	"github.com/noah-isme/tripod-pricing/internal/coupon"
	"github.com/noah-isme/tripod-pricing/internal/discount"
)

const couponColumns = `
id::text, code, type, value::text, min_spend::text, usage_limit, used_count,
per_client_limit, valid_from, valid_to, service_ids::text[], bundle_ids::text[], active, created_at`

// GetCouponByCode looks a coupon up by its normalized code.
func (s *Store) GetCouponByCode(ctx context.Context, code string) (coupon.Rule, error) {
	return scanCoupon(s.DB.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = $1`, coupon.NormalizeCode(code)))
}

// CountCouponUsageByClient counts settled usages of a coupon by one client.
func (s *Store) CountCouponUsageByClient(ctx context.Context, couponID, clientID string) (int64, error) {
	couponID, err := validID(couponID)
	if err != nil {
		return 0, nil
	}
	clientID, err = validID(clientID)
	if err != nil {
		return 0, nil
	}
	var n int64
	err = s.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1::uuid AND client_id = $2::uuid`,
		couponID, clientID).Scan(&n)
	return n, err
}

// CreateCoupon inserts rule. A duplicate code returns coupon.ErrCodeTaken.
func (s *Store) CreateCoupon(ctx context.Context, rule coupon.Rule) (coupon.Rule, error) {
	serviceIDs := nonNil(rule.ServiceIDs)
	bundleIDs := nonNil(rule.BundleIDs)
	row := s.DB.QueryRow(ctx, `
INSERT INTO coupons (code, type, value, min_spend, usage_limit, per_client_limit,
                     valid_from, valid_to, service_ids, bundle_ids, active)
VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7, $8, $9::text[]::uuid[], $10::text[]::uuid[], $11)
RETURNING `+couponColumns,
		rule.Code, string(rule.Type), rule.Value.String(), rule.MinSpend.String(),
		rule.UsageLimit, rule.PerClientLimit, rule.ValidFrom, rule.ValidTo,
		serviceIDs, bundleIDs, rule.Active)
	created, err := scanCoupon(row)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.Rule{}, coupon.ErrCodeTaken
		}
		return coupon.Rule{}, err
	}
	return created, nil
}

func scanCoupon(row interface{ Scan(...any) error }) (coupon.Rule, error) {
	var (
		r               coupon.Rule
		typ             string
		value, minSpend string
	)
	err := row.Scan(&r.ID, &r.Code, &typ, &value, &minSpend, &r.UsageLimit, &r.UsedCount,
		&r.PerClientLimit, &r.ValidFrom, &r.ValidTo, &r.ServiceIDs, &r.BundleIDs, &r.Active, &r.CreatedAt)
	if err != nil {
		return coupon.Rule{}, err
	}
	r.Type = discount.CouponType(strings.ToLower(typ))
	if r.Value, err = parseDecimal(value); err != nil {
		return coupon.Rule{}, err
	}
	if r.MinSpend, err = parseDecimal(minSpend); err != nil {
		return coupon.Rule{}, err
	}
	return r, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
