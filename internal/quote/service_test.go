package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tripod-pricing/internal/coupon"
	"github.com/noah-isme/tripod-pricing/internal/discount"
	"github.com/noah-isme/tripod-pricing/internal/pricing"
	"github.com/noah-isme/tripod-pricing/internal/profit"
	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

type stubStore struct {
	services       map[string]pricing.ServiceDefinition
	bundles        map[string]pricing.Bundle
	accounts       map[string]Account
	agreements     vendorcost.Agreements
	bundleCosts    vendorcost.BundleCosts
	requests       map[string]profit.Request
	bundleRequests map[string]profit.BundleRequest
	agreementErr   error
	accountErrs    map[string]error
}

func (s *stubStore) GetService(_ context.Context, id string) (pricing.ServiceDefinition, error) {
	if svc, ok := s.services[id]; ok {
		return svc, nil
	}
	return pricing.ServiceDefinition{}, pgx.ErrNoRows
}

func (s *stubStore) GetBundle(_ context.Context, id string) (pricing.Bundle, error) {
	if b, ok := s.bundles[id]; ok {
		return b, nil
	}
	return pricing.Bundle{}, pgx.ErrNoRows
}

func (s *stubStore) GetAccount(_ context.Context, id string) (Account, error) {
	if err := s.accountErrs[id]; err != nil {
		return Account{}, err
	}
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	return Account{}, pgx.ErrNoRows
}

func (s *stubStore) GetAgreement(_ context.Context, vendorID string) (vendorcost.Agreement, error) {
	if s.agreementErr != nil {
		return vendorcost.Agreement{}, s.agreementErr
	}
	if a, ok := s.agreements[vendorID]; ok {
		return a, nil
	}
	return vendorcost.Agreement{}, pgx.ErrNoRows
}

func (s *stubStore) GetBundleCost(_ context.Context, vendorID, bundleID string) (decimal.Decimal, error) {
	if c, ok := s.bundleCosts[vendorcost.BundleKey{VendorID: vendorID, BundleID: bundleID}]; ok {
		return c, nil
	}
	return decimal.Zero, pgx.ErrNoRows
}

func (s *stubStore) GetRequest(_ context.Context, id string) (profit.Request, error) {
	if r, ok := s.requests[id]; ok {
		return r, nil
	}
	return profit.Request{}, pgx.ErrNoRows
}

func (s *stubStore) GetBundleRequest(_ context.Context, id string) (profit.BundleRequest, error) {
	if r, ok := s.bundleRequests[id]; ok {
		return r, nil
	}
	return profit.BundleRequest{}, pgx.ErrNoRows
}

type stubCoupons struct {
	coupon discount.Coupon
	err    error
	last   coupon.Target
}

func (s *stubCoupons) Validate(_ context.Context, target coupon.Target) (discount.Coupon, error) {
	s.last = target
	return s.coupon, s.err
}

func newStore() *stubStore {
	stored := dec("50.00")
	return &stubStore{
		services: map[string]pricing.ServiceDefinition{"svc-logo": logoCleanup()},
		bundles:  map[string]pricing.Bundle{"b1": {ID: "b1", Title: "Brand Kit", Price: dec("499.00")}},
		accounts: map[string]Account{
			"client-1": {ID: "client-1", Role: vendorcost.RoleClient, DiscountTier: discount.TierOMSSubscription},
			"v1":       {ID: "v1", Role: vendorcost.RoleVendor},
			"m1":       {ID: "m1", Role: vendorcost.RoleVendorMember, ParentVendorID: "v1"},
			"d1":       {ID: "d1", Role: vendorcost.RoleDesigner},
		},
		agreements:  logoAgreements(),
		bundleCosts: vendorcost.BundleCosts{{VendorID: "v1", BundleID: "b1"}: dec("120")},
		requests: map[string]profit.Request{
			"r1": {ID: "r1", ServiceID: "svc-logo", ClientID: "client-1",
				FormData:         pricing.FormData{"amount_of_products": "60"},
				StoredFinalPrice: &stored,
				Assignee:         &vendorcost.Assignee{ID: "m1", Role: vendorcost.RoleVendorMember, ParentVendorID: "v1"},
				CreatedAt:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
			"r2": {ID: "r2", ServiceID: "svc-logo", ClientID: "client-1",
				FormData: pricing.FormData{"quantity": "20"}},
		},
		bundleRequests: map[string]profit.BundleRequest{
			"br1": {ID: "br1", BundleID: "b1", ClientID: "client-1",
				Assignee: &vendorcost.Assignee{ID: "v1", Role: vendorcost.RoleVendor}},
		},
	}
}

func newService(store Store, coupons CouponValidator) *Service {
	return &Service{Store: store, Coupons: coupons, Stacker: discount.NewStacker(nil), Log: zerolog.Nop()}
}

func TestQuoteEndToEnd(t *testing.T) {
	coupons := &stubCoupons{coupon: discount.Coupon{Code: "TENOFF", Type: discount.CouponFixed, Value: dec("10")}}
	svc := newService(newStore(), coupons)

	out, err := svc.Quote(context.Background(), Draft{
		ServiceID:  "svc-logo",
		ClientID:   "client-1",
		AssigneeID: "m1",
		CouponCode: "tenoff",
		FormData:   pricing.FormData{"amount_of_products": "60"},
	})
	require.NoError(t, err)
	require.Equal(t, "81.80", out.FinalPrice.StringFixed(2))
	require.Equal(t, "26.20", out.DiscountAmount.StringFixed(2))
	require.Equal(t, "45.00", out.VendorCost.StringFixed(2))
	require.Equal(t, "v1", out.VendorID)
	require.Equal(t, discount.TierOMSSubscription, out.ClientTier)
	require.Equal(t, "91.80", coupons.last.Amount.StringFixed(2), "coupon minimum is checked after the tier discount")
	require.Equal(t, "svc-logo", coupons.last.ServiceID)
}

func TestQuoteCouponRejected(t *testing.T) {
	svc := newService(newStore(), &stubCoupons{err: coupon.ErrExpired})
	_, err := svc.Quote(context.Background(), Draft{ServiceID: "svc-logo", CouponCode: "OLD", FormData: pricing.FormData{"quantity": 5}})
	require.ErrorIs(t, err, coupon.ErrExpired)

	svc.Coupons = nil
	_, err = svc.Quote(context.Background(), Draft{ServiceID: "svc-logo", CouponCode: "OLD"})
	require.ErrorIs(t, err, coupon.ErrNotEligible)
}

func TestQuoteNotFound(t *testing.T) {
	svc := newService(newStore(), nil)
	ctx := context.Background()

	_, err := svc.Quote(ctx, Draft{ServiceID: "missing"})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Quote(ctx, Draft{})
	require.ErrorIs(t, err, ErrNotFound)
	_, _, err = svc.RequestPrice(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestQuoteInternalAssigneeSkipsAgreementLookup(t *testing.T) {
	store := newStore()
	store.agreementErr = errors.New("should not be called")
	svc := newService(store, nil)
	out, err := svc.Quote(context.Background(), Draft{ServiceID: "svc-logo", AssigneeID: "d1", FormData: pricing.FormData{"quantity": "10"}})
	require.NoError(t, err)
	require.True(t, out.VendorCost.IsZero())
	require.Equal(t, vendorcost.ProvenanceInternal, out.CostProvenance)
	require.Equal(t, "20.00", out.Profit.StringFixed(2))
}

func TestQuoteAgreementErrorsPropagate(t *testing.T) {
	store := newStore()
	store.agreementErr = errors.New("db down")
	svc := newService(store, nil)
	_, err := svc.Quote(context.Background(), Draft{ServiceID: "svc-logo", AssigneeID: "v1"})
	require.EqualError(t, err, "db down")
}

func TestRequestPriceStoredImmunity(t *testing.T) {
	store := newStore()
	svc := newService(store, nil)

	out, req, err := svc.RequestPrice(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "client-1", req.ClientID)
	require.Equal(t, "50.00", out.FinalPrice.StringFixed(2))
	require.Equal(t, pricing.SourceStored, out.PriceSource)
	require.Equal(t, "45.00", out.VendorCost.StringFixed(2))
	require.Equal(t, "5.00", out.Profit.StringFixed(2))

	out, _, err = svc.RequestPrice(context.Background(), "r2")
	require.NoError(t, err)
	// 20 x 2.00 = 40.00, less 15% = 34.00
	require.Equal(t, "34.00", out.FinalPrice.StringFixed(2))
}

func TestBundleRequestPrice(t *testing.T) {
	svc := newService(newStore(), nil)
	out, _, err := svc.BundleRequestPrice(context.Background(), "br1")
	require.NoError(t, err)
	// 499.00 less 15% = 424.15
	require.Equal(t, "424.15", out.FinalPrice.StringFixed(2))
	require.Equal(t, "120.00", out.VendorCost.StringFixed(2))

	_, _, err = svc.BundleRequestPrice(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestQuoteClientLookupFallsBackToNoTier(t *testing.T) {
	store := newStore()
	store.accountErrs = map[string]error{"client-down": errors.New("connection reset")}
	svc := newService(store, nil)
	form := pricing.FormData{"amount_of_products": "60"}

	for _, clientID := range []string{"ghost", "client-down"} {
		out, err := svc.Quote(context.Background(), Draft{ServiceID: "svc-logo", ClientID: clientID, FormData: form})
		require.NoError(t, err, clientID)
		require.Equal(t, discount.TierNone, out.ClientTier, clientID)
		require.Equal(t, "108.00", out.FinalPrice.StringFixed(2), clientID)
	}
}
