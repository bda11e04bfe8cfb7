package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

// ListAgreements returns every vendor agreement keyed by vendor id.
func (s *Store) ListAgreements(ctx context.Context) (vendorcost.Agreements, error) {
	rows, err := s.DB.Query(ctx, `SELECT vendor_id::text, service_rates FROM vendor_agreements`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := vendorcost.Agreements{}
	for rows.Next() {
		a, err := scanAgreement(rows, s.Log)
		if err != nil {
			return nil, err
		}
		out[a.VendorID] = a
	}
	return out, rows.Err()
}

// GetAgreement returns the agreement of one vendor.
func (s *Store) GetAgreement(ctx context.Context, vendorID string) (vendorcost.Agreement, error) {
	vendorID, err := validID(vendorID)
	if err != nil {
		return vendorcost.Agreement{}, err
	}
	return scanAgreement(s.DB.QueryRow(ctx,
		`SELECT vendor_id::text, service_rates FROM vendor_agreements WHERE vendor_id = $1::uuid`, vendorID), s.Log)
}

// ListBundleCosts returns the flat (vendor, bundle) cost table.
func (s *Store) ListBundleCosts(ctx context.Context) (vendorcost.BundleCosts, error) {
	rows, err := s.DB.Query(ctx, `SELECT vendor_id::text, bundle_id::text, cost::text FROM vendor_bundle_costs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := vendorcost.BundleCosts{}
	for rows.Next() {
		var (
			key  vendorcost.BundleKey
			cost string
		)
		if err := rows.Scan(&key.VendorID, &key.BundleID, &cost); err != nil {
			return nil, err
		}
		amount, err := parseDecimal(cost)
		if err != nil {
			return nil, err
		}
		out[key] = amount
	}
	return out, rows.Err()
}

// GetBundleCost returns what a vendor charges for a bundle.
func (s *Store) GetBundleCost(ctx context.Context, vendorID, bundleID string) (decimal.Decimal, error) {
	vendorID, err := validID(vendorID)
	if err != nil {
		return decimal.Zero, err
	}
	bundleID, err = validID(bundleID)
	if err != nil {
		return decimal.Zero, err
	}
	var cost string
	err = s.DB.QueryRow(ctx,
		`SELECT cost::text FROM vendor_bundle_costs WHERE vendor_id = $1::uuid AND bundle_id = $2::uuid`,
		vendorID, bundleID).Scan(&cost)
	if err != nil {
		return decimal.Zero, err
	}
	return parseDecimal(cost)
}

func scanAgreement(row interface{ Scan(...any) error }, log zerolog.Logger) (vendorcost.Agreement, error) {
	var (
		a   vendorcost.Agreement
		raw []byte
	)
	if err := row.Scan(&a.VendorID, &raw); err != nil {
		return vendorcost.Agreement{}, err
	}
	rates, err := decodeRates(raw)
	if err != nil {
		log.Warn().Err(err).Str("vendor_id", a.VendorID).Msg("malformed vendor service rates")
		rates = map[string]vendorcost.Rate{}
	}
	a.Services = rates
	return a, nil
}

func decodeRates(raw []byte) (map[string]vendorcost.Rate, error) {
	rates := map[string]vendorcost.Rate{}
	if len(raw) == 0 {
		return rates, nil
	}
	if err := json.Unmarshal(raw, &rates); err != nil {
		return nil, fmt.Errorf("decode service rates: %w", err)
	}
	return rates, nil
}
