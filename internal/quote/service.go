package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/tripod-pricing/internal/coupon"
	"github.com/noah-isme/tripod-pricing/internal/discount"
	"github.com/noah-isme/tripod-pricing/internal/obs"
	"github.com/noah-isme/tripod-pricing/internal/pricing"
	"github.com/noah-isme/tripod-pricing/internal/profit"
	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotConfigured is returned when the service has no store.
	ErrNotConfigured = errors.New("quote service not configured")
)

// Account is a user record as far as pricing is concerned.
type Account struct {
	ID             string          `json:"id"`
	Role           vendorcost.Role `json:"role"`
	ParentVendorID string          `json:"parent_vendor_id,omitempty"`
	DiscountTier   discount.Tier   `json:"discount_tier"`
}

// Assignee converts the account into a cost-resolution assignee.
func (a Account) Assignee() *vendorcost.Assignee {
	return &vendorcost.Assignee{ID: a.ID, Role: a.Role, ParentVendorID: a.ParentVendorID}
}

// Store defines the data access required to quote a request.
type Store interface {
	GetService(ctx context.Context, id string) (pricing.ServiceDefinition, error)
	GetBundle(ctx context.Context, id string) (pricing.Bundle, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	GetAgreement(ctx context.Context, vendorID string) (vendorcost.Agreement, error)
	GetBundleCost(ctx context.Context, vendorID, bundleID string) (decimal.Decimal, error)
	GetRequest(ctx context.Context, id string) (profit.Request, error)
	GetBundleRequest(ctx context.Context, id string) (profit.BundleRequest, error)
}

// CouponValidator checks coupon codes before they reach the stacker.
type CouponValidator interface {
	Validate(ctx context.Context, target coupon.Target) (discount.Coupon, error)
}

// Draft is an unsaved request to be priced.
type Draft struct {
	ServiceID  string
	BundleID   string
	ClientID   string
	AssigneeID string
	CouponCode string
	FormData   pricing.FormData
}

// Service loads records and runs the pricing pipeline.
type Service struct {
	Store   Store
	Coupons CouponValidator
	Stacker discount.Stacker
	Log     zerolog.Logger
}

// Quote prices a draft request. A coupon that fails validation is an error
// so the caller can tell the client why.
func (s *Service) Quote(ctx context.Context, d Draft) (_ ResolvedPrice, err error) {
	if s == nil || s.Store == nil {
		return ResolvedPrice{}, ErrNotConfigured
	}
	ctx, span := obs.StartSpan(ctx, "quote.draft",
		attribute.String("quote.service_id", d.ServiceID),
		attribute.String("quote.bundle_id", d.BundleID),
		attribute.Bool("quote.coupon", strings.TrimSpace(d.CouponCode) != ""),
	)
	defer func() { obs.EndSpan(span, err) }()

	in, err := s.baseInput(ctx, d.ServiceID, d.BundleID, d.ClientID, d.AssigneeID)
	if err != nil {
		return ResolvedPrice{}, err
	}
	in.Form = d.FormData

	if code := strings.TrimSpace(d.CouponCode); code != "" {
		c, err := s.validateCoupon(ctx, in, d.ClientID, d.ServiceID, d.BundleID, code)
		if err != nil {
			return ResolvedPrice{}, err
		}
		in.Coupon = c
	}
	return s.resolve(in), nil
}

// RequestPrice resolves a stored ad-hoc request.
func (s *Service) RequestPrice(ctx context.Context, id string) (ResolvedPrice, profit.Request, error) {
	if s == nil || s.Store == nil {
		return ResolvedPrice{}, profit.Request{}, ErrNotConfigured
	}
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return ResolvedPrice{}, profit.Request{}, notFound("request", err)
	}
	in, err := s.baseInput(ctx, req.ServiceID, "", req.ClientID, assigneeID(req.Assignee))
	if err != nil {
		return ResolvedPrice{}, req, err
	}
	in.Form = req.FormData
	in.StoredFinalPrice = req.StoredFinalPrice
	return s.resolve(in), req, nil
}

// BundleRequestPrice resolves a stored bundle request.
func (s *Service) BundleRequestPrice(ctx context.Context, id string) (ResolvedPrice, profit.BundleRequest, error) {
	if s == nil || s.Store == nil {
		return ResolvedPrice{}, profit.BundleRequest{}, ErrNotConfigured
	}
	req, err := s.Store.GetBundleRequest(ctx, id)
	if err != nil {
		return ResolvedPrice{}, profit.BundleRequest{}, notFound("bundle request", err)
	}
	in, err := s.baseInput(ctx, "", req.BundleID, req.ClientID, assigneeID(req.Assignee))
	if err != nil {
		return ResolvedPrice{}, req, err
	}
	in.StoredFinalPrice = req.StoredFinalPrice
	return s.resolve(in), req, nil
}

func (s *Service) baseInput(ctx context.Context, serviceID, bundleID, clientID, assigneeID string) (Input, error) {
	var in Input
	switch {
	case strings.TrimSpace(bundleID) != "":
		b, err := s.Store.GetBundle(ctx, bundleID)
		if err != nil {
			return Input{}, notFound("bundle", err)
		}
		in.Bundle = &b
	case strings.TrimSpace(serviceID) != "":
		svc, err := s.Store.GetService(ctx, serviceID)
		if err != nil {
			return Input{}, notFound("service", err)
		}
		in.Service = svc
	default:
		return Input{}, fmt.Errorf("service or bundle is required: %w", ErrNotFound)
	}

	in.ClientTier = discount.TierNone
	if strings.TrimSpace(clientID) != "" {
		client, err := s.Store.GetAccount(ctx, clientID)
		switch {
		case err == nil:
			in.ClientTier = client.DiscountTier
		case errors.Is(err, pgx.ErrNoRows):
			s.Log.Debug().Str("client_id", clientID).Msg("client not found, pricing without tier discount")
		default:
			s.Log.Warn().Err(err).Str("client_id", clientID).Msg("client lookup failed, pricing without tier discount")
		}
	}

	if strings.TrimSpace(assigneeID) == "" {
		return in, nil
	}
	account, err := s.Store.GetAccount(ctx, assigneeID)
	if err != nil {
		return Input{}, notFound("assignee", err)
	}
	in.Assignee = account.Assignee()
	vendorID, ok := in.Assignee.VendorID()
	if !ok || in.Assignee.IsInternal() {
		return in, nil
	}
	if in.Bundle != nil {
		amount, err := s.Store.GetBundleCost(ctx, vendorID, in.Bundle.ID)
		switch {
		case err == nil:
			in.BundleCosts = vendorcost.BundleCosts{{VendorID: vendorID, BundleID: in.Bundle.ID}: amount}
		case !errors.Is(err, pgx.ErrNoRows):
			return Input{}, err
		}
		return in, nil
	}
	agreement, err := s.Store.GetAgreement(ctx, vendorID)
	switch {
	case err == nil:
		in.Agreements = vendorcost.Agreements{vendorID: agreement}
	case !errors.Is(err, pgx.ErrNoRows):
		return Input{}, err
	}
	return in, nil
}

func (s *Service) validateCoupon(ctx context.Context, in Input, clientID, serviceID, bundleID, code string) (*discount.Coupon, error) {
	if s.Coupons == nil {
		return nil, fmt.Errorf("coupons not supported: %w", coupon.ErrNotEligible)
	}
	// the coupon minimum is checked against the tier-discounted price
	amount := decimal.Zero
	probe := Resolve(s.Stacker, in)
	if probe.Breakdown != nil {
		amount = probe.Breakdown.AfterClientDiscount
	}
	c, err := s.Coupons.Validate(ctx, coupon.Target{
		Code:      code,
		ClientID:  clientID,
		ServiceID: serviceID,
		BundleID:  bundleID,
		Amount:    amount,
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) resolve(in Input) ResolvedPrice {
	out := Resolve(s.Stacker, in)
	structure := "bundle"
	if in.Bundle == nil {
		structure = string(pricing.NormalizeStructure(string(in.Service.Structure)))
	}
	result := "resolved"
	if !out.Available {
		result = out.Reason
		s.Log.Debug().Str("service_id", in.Service.ID).Str("reason", out.Reason).Msg("retail price unavailable")
	}
	obs.ObservePricing(structure, result)
	obs.ObserveVendorCost(string(out.CostProvenance))
	return out
}

func assigneeID(a *vendorcost.Assignee) string {
	if a == nil {
		return ""
	}
	return a.ID
}

func notFound(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return err
}
