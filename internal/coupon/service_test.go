package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tripod-pricing/internal/discount"
)

type stubQueries struct {
	rules      map[string]Rule
	usageCount int64
	usageErr   error
	usageCalls int
	created    []Rule
	createErr  error
}

func (s *stubQueries) GetCouponByCode(_ context.Context, code string) (Rule, error) {
	rule, ok := s.rules[code]
	if !ok {
		return Rule{}, pgx.ErrNoRows
	}
	return rule, nil
}

func (s *stubQueries) CountCouponUsageByClient(context.Context, string, string) (int64, error) {
	s.usageCalls++
	if s.usageErr != nil {
		return 0, s.usageErr
	}
	return s.usageCount, nil
}

func (s *stubQueries) CreateCoupon(_ context.Context, rule Rule) (Rule, error) {
	if s.createErr != nil {
		return Rule{}, s.createErr
	}
	rule.ID = "00000000-0000-0000-0000-000000000001"
	s.created = append(s.created, rule)
	return rule, nil
}

func fixedNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func newService(rules ...Rule) (*Service, *stubQueries) {
	q := &stubQueries{rules: map[string]Rule{}}
	for _, r := range rules {
		q.rules[r.Code] = r
	}
	return &Service{Q: q, Now: fixedNow}, q
}

func TestValidateReturnsCoupon(t *testing.T) {
	svc, q := newService(Rule{ID: "c1", Code: "TENOFF", Type: discount.CouponFixed, Value: dec("10"), Active: true})
	c, err := svc.Validate(context.Background(), Target{Code: " tenoff ", ClientID: "client-1", Amount: dec("91.80")})
	require.NoError(t, err)
	require.Equal(t, discount.CouponFixed, c.Type)
	require.True(t, c.Value.Equal(dec("10")))
	require.Zero(t, q.usageCalls, "no per-client limit means no usage lookup")
}

func TestValidateUnknownAndBlank(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Validate(context.Background(), Target{Code: "NOPE"})
	require.ErrorIs(t, err, ErrNotEligible)
	_, err = svc.Validate(context.Background(), Target{Code: "  "})
	require.ErrorIs(t, err, ErrNotEligible)

	var nilSvc *Service
	_, err = nilSvc.Validate(context.Background(), Target{Code: "X"})
	require.Error(t, err)
}

func TestValidatePerClientLimit(t *testing.T) {
	svc, q := newService(Rule{ID: "c1", Code: "ONCE", Type: discount.CouponPercentage, Value: dec("10"), Active: true})
	svc.DefaultPerClientLimit = 1
	q.usageCount = 1

	_, err := svc.Validate(context.Background(), Target{Code: "ONCE", ClientID: "client-1", Amount: dec("50")})
	require.ErrorIs(t, err, ErrPerClientLimitReached)
	require.Equal(t, 1, q.usageCalls)

	q.usageErr = errors.New("db down")
	_, err = svc.Validate(context.Background(), Target{Code: "ONCE", ClientID: "client-1", Amount: dec("50")})
	require.EqualError(t, err, "db down")
}

func TestValidateScope(t *testing.T) {
	svc, _ := newService(Rule{Code: "LOGO", Type: discount.CouponFixed, Value: dec("5"), Active: true, ServiceIDs: []string{"svc-logo"}})
	_, err := svc.Validate(context.Background(), Target{Code: "LOGO", ServiceID: "svc-banner", Amount: dec("50")})
	require.ErrorIs(t, err, ErrNotEligible)
	_, err = svc.Validate(context.Background(), Target{Code: "LOGO", ServiceID: "svc-logo", Amount: dec("50")})
	require.NoError(t, err)
}

func TestPreview(t *testing.T) {
	svc, _ := newService(Rule{Code: "TEN", Type: discount.CouponPercentage, Value: dec("10"), Active: true})
	res, err := svc.Preview(context.Background(), Target{Code: "TEN", Amount: dec("80.00")})
	require.NoError(t, err)
	require.Equal(t, "8.00", res.CouponDiscount.StringFixed(2))
	require.Equal(t, "72.00", res.FinalPrice.StringFixed(2))

	_, err = svc.Preview(context.Background(), Target{Code: "TEN", Amount: dec("0")})
	require.ErrorIs(t, err, ErrNotEligible)
}

func TestCreateNormalizesAndValidates(t *testing.T) {
	svc, q := newService()
	rule, err := svc.Create(context.Background(), Rule{Code: " spring ", Type: "Percentage", Value: dec("15"), Active: true})
	require.NoError(t, err)
	require.Equal(t, "SPRING", rule.Code)
	require.Equal(t, discount.CouponPercentage, rule.Type)
	require.Len(t, q.created, 1)

	from := fixedNow()
	to := from.Add(-time.Hour)
	bad := []Rule{
		{Code: "", Type: discount.CouponFixed, Value: dec("1")},
		{Code: "A", Type: "bogus", Value: dec("1")},
		{Code: "A", Type: discount.CouponFixed, Value: dec("0")},
		{Code: "A", Type: discount.CouponPercentage, Value: dec("101")},
		{Code: "A", Type: discount.CouponFixed, Value: dec("1"), MinSpend: dec("-1")},
		{Code: "A", Type: discount.CouponFixed, Value: dec("1"), ValidFrom: &from, ValidTo: &to},
	}
	for i, r := range bad {
		_, err := svc.Create(context.Background(), r)
		require.ErrorIs(t, err, ErrInvalidRule, "case %d", i)
	}
	require.Len(t, q.created, 1)
}
