package profit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/tripod-pricing/internal/cache"
	"github.com/noah-isme/tripod-pricing/internal/obs"
	"github.com/noah-isme/tripod-pricing/internal/pricing"
	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

// ErrNotConfigured is returned when the service has no store.
var ErrNotConfigured = errors.New("profit service not configured")

// Window bounds the creation time of the requests a store returns. Both
// ends are calendar days and inclusive.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Store defines the data access required to build reports.
type Store interface {
	ListRequests(ctx context.Context, w Window) ([]Request, error)
	ListBundleRequests(ctx context.Context, w Window) ([]BundleRequest, error)
	ListServices(ctx context.Context) ([]pricing.ServiceDefinition, error)
	ListBundles(ctx context.Context) ([]pricing.Bundle, error)
	ListAgreements(ctx context.Context) (vendorcost.Agreements, error)
	ListBundleCosts(ctx context.Context) (vendorcost.BundleCosts, error)
}

// Service builds profit reports and caches them in Redis.
type Service struct {
	Store Store
	Cache *cache.JSON
	Log   zerolog.Logger
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CacheKey is the Redis key a report for filters is cached under.
func (s *Service) CacheKey(filters Filters) string {
	return s.Cache.Key("profit", "report", filters.CacheKey())
}

// Report returns the cached report for filters, building it on a miss.
func (s *Service) Report(ctx context.Context, filters Filters) (Report, error) {
	if s == nil || s.Store == nil {
		return Report{}, ErrNotConfigured
	}
	key := s.CacheKey(filters)
	var cached Report
	hit, err := s.Cache.Get(ctx, key, &cached)
	if err != nil {
		s.Log.Warn().Err(err).Str("key", key).Msg("profit report cache read failed")
	}
	if hit {
		obs.ObserveReportCache("hit")
		return cached, nil
	}
	obs.ObserveReportCache("miss")

	report, err := s.Build(ctx, filters)
	if err != nil {
		return Report{}, err
	}
	if err := s.Cache.Set(ctx, key, report); err != nil {
		s.Log.Warn().Err(err).Str("key", key).Msg("profit report cache write failed")
	}
	return report, nil
}

// Build loads the inputs and computes a fresh report, bypassing the cache.
func (s *Service) Build(ctx context.Context, filters Filters) (report Report, err error) {
	if s == nil || s.Store == nil {
		return Report{}, ErrNotConfigured
	}
	ctx, span := obs.StartSpan(ctx, "profit.build")
	defer func() { obs.EndSpan(span, err) }()

	in, err := s.load(ctx, filters)
	if err != nil {
		return Report{}, err
	}
	span.SetAttributes(
		attribute.Int("profit.requests", len(in.Requests)),
		attribute.Int("profit.bundle_requests", len(in.BundleRequests)),
	)
	report = BuildReport(in, filters)
	report.GeneratedAt = s.now().UTC()
	s.observe(in, report)
	return report, nil
}

// Refresh rebuilds the report for filters and overwrites the cached copy.
func (s *Service) Refresh(ctx context.Context, filters Filters) (Report, error) {
	report, err := s.Build(ctx, filters)
	if err != nil {
		return Report{}, err
	}
	if err := s.Cache.Set(ctx, s.CacheKey(filters), report); err != nil {
		return Report{}, fmt.Errorf("store snapshot: %w", err)
	}
	return report, nil
}

func (s *Service) load(ctx context.Context, filters Filters) (Input, error) {
	n := filters.normalize()
	w := Window{From: n.From, To: n.To}

	requests, err := s.Store.ListRequests(ctx, w)
	if err != nil {
		return Input{}, fmt.Errorf("list requests: %w", err)
	}
	bundleRequests, err := s.Store.ListBundleRequests(ctx, w)
	if err != nil {
		return Input{}, fmt.Errorf("list bundle requests: %w", err)
	}
	services, err := s.Store.ListServices(ctx)
	if err != nil {
		return Input{}, fmt.Errorf("list services: %w", err)
	}
	bundles, err := s.Store.ListBundles(ctx)
	if err != nil {
		return Input{}, fmt.Errorf("list bundles: %w", err)
	}
	agreements, err := s.Store.ListAgreements(ctx)
	if err != nil {
		return Input{}, fmt.Errorf("list agreements: %w", err)
	}
	bundleCosts, err := s.Store.ListBundleCosts(ctx)
	if err != nil {
		return Input{}, fmt.Errorf("list bundle costs: %w", err)
	}

	in := Input{
		Requests:       requests,
		BundleRequests: bundleRequests,
		Services:       make(map[string]pricing.ServiceDefinition, len(services)),
		Bundles:        make(map[string]pricing.Bundle, len(bundles)),
		Agreements:     agreements,
		BundleCosts:    bundleCosts,
	}
	for _, svc := range services {
		in.Services[svc.ID] = svc
	}
	for _, b := range bundles {
		in.Bundles[b.ID] = b
	}
	return in, nil
}

func (s *Service) observe(in Input, report Report) {
	obs.ObserveReport(len(report.Rows))
	for _, row := range report.Rows {
		structure := "bundle"
		if row.Kind == KindRequest {
			structure = string(pricing.NormalizeStructure(string(in.Services[row.ItemID].Structure)))
		}
		result := "resolved"
		if row.PriceSource == pricing.SourceUnavailable {
			result = row.PriceReason
			s.Log.Debug().
				Str("request_id", row.RequestID).
				Str("service_id", row.ItemID).
				Str("reason", row.PriceReason).
				Msg("retail price unavailable")
		}
		obs.ObservePricing(structure, result)
		obs.ObserveVendorCost(string(row.CostProvenance))
		if row.CostProvenance == vendorcost.ProvenanceNoAgreement || row.CostProvenance == vendorcost.ProvenanceNoServiceRate {
			s.Log.Debug().
				Str("request_id", row.RequestID).
				Str("vendor_id", row.VendorID).
				Str("provenance", string(row.CostProvenance)).
				Msg("vendor cost missing")
		}
	}
}
