package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tripod-pricing/internal/auth"
	"github.com/noah-isme/tripod-pricing/internal/common"
	"github.com/noah-isme/tripod-pricing/internal/config"
	"github.com/noah-isme/tripod-pricing/internal/migrations"
	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

// Fixed ids keep the seed idempotent and make the printed tokens reusable.
const (
	adminID    = "00000000-0000-4000-8000-000000000001"
	designerID = "00000000-0000-4000-8000-000000000002"
	vendorID   = "00000000-0000-4000-8000-000000000003"
	memberID   = "00000000-0000-4000-8000-000000000004"
	clientID   = "00000000-0000-4000-8000-000000000005"

	logoCleanupID  = "10000000-0000-4000-8000-000000000001"
	bannerDesignID = "10000000-0000-4000-8000-000000000002"
	rushFeeID      = "10000000-0000-4000-8000-000000000003"
	starterPackID  = "20000000-0000-4000-8000-000000000001"
	sampleReqID    = "30000000-0000-4000-8000-000000000001"
	sampleBundleID = "30000000-0000-4000-8000-000000000002"
)

type seedUser struct {
	ID, Email, Name, Role, Tier string
	Parent                      *string
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer conn.Close(context.Background())

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		for _, step := range []struct {
			name string
			fn   func(context.Context, pgx.Tx) error
		}{
			{"users", seedUsers},
			{"catalog", seedCatalog},
			{"agreements", seedAgreements},
			{"coupons", seedCoupons},
			{"requests", seedRequests},
		} {
			if err := step.fn(ctx, tx); err != nil {
				return fmt.Errorf("seed %s: %w", step.name, err)
			}
			logger.Info().Str("step", step.name).Msg("seeded")
		}
		return nil
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed database")
	}

	verifier, err := auth.NewVerifier(auth.VerifierConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}
	for _, p := range []common.Principal{
		{ID: adminID, Role: string(vendorcost.RoleAdmin)},
		{ID: vendorID, Role: string(vendorcost.RoleVendor), VendorID: vendorID},
		{ID: clientID, Role: string(vendorcost.RoleClient)},
	} {
		token, err := verifier.Sign(p, 30*24*time.Hour)
		if err != nil {
			logger.Fatal().Err(err).Msg("sign development token")
		}
		fmt.Printf("%s\t%s\n", p.Role, token)
	}
	logger.Info().Msg("seeding completed")
}

func seedUsers(ctx context.Context, tx pgx.Tx) error {
	parent := vendorID
	users := []seedUser{
		{ID: adminID, Email: "admin@tripod.test", Name: "Admin", Role: "admin", Tier: "none"},
		{ID: designerID, Email: "designer@tripod.test", Name: "In-house Designer", Role: "designer", Tier: "none"},
		{ID: vendorID, Email: "vendor@tripod.test", Name: "Print Partner", Role: "vendor", Tier: "none"},
		{ID: memberID, Email: "member@tripod.test", Name: "Print Partner Member", Role: "vendor_member", Tier: "none", Parent: &parent},
		{ID: clientID, Email: "client@tripod.test", Name: "OMS Client", Role: "client", Tier: "oms_subscription"},
	}
	for _, u := range users {
		_, err := tx.Exec(ctx, `
INSERT INTO users (id, email, display_name, role, parent_vendor_id, discount_tier)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, display_name = EXCLUDED.display_name,
  role = EXCLUDED.role, parent_vendor_id = EXCLUDED.parent_vendor_id, discount_tier = EXCLUDED.discount_tier`,
			u.ID, u.Email, u.Name, u.Role, u.Parent, u.Tier)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedCatalog(ctx context.Context, tx pgx.Tx) error {
	services := []struct {
		id, title, structure, base, priceRange string
		tiers                                  [][2]string
	}{
		{logoCleanupID, "Logo Cleanup", "quantity", "2.00", "$1.30 - $2.00 per logo", [][2]string{{"1-50", "2.00"}, {"51-75", "1.80"}, {"76-100", "1.50"}, {">101", "1.30"}}},
		{bannerDesignID, "Banner Design", "complexity", "35.00", "$25 - $75", [][2]string{{"basic", "25.00"}, {"standard", "45.00"}, {"advanced", "75.00"}}},
		{rushFeeID, "Rush Fee", "single", "15.00", "", nil},
	}
	for _, s := range services {
		_, err := tx.Exec(ctx, `
INSERT INTO services (id, title, pricing_structure, base_price, price_range)
VALUES ($1, $2, $3, $4::numeric, $5)
ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, pricing_structure = EXCLUDED.pricing_structure,
  base_price = EXCLUDED.base_price, price_range = EXCLUDED.price_range`,
			s.id, s.title, s.structure, s.base, s.priceRange)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM pricing_tiers WHERE service_id = $1`, s.id); err != nil {
			return err
		}
		for i, t := range s.tiers {
			if _, err := tx.Exec(ctx, `INSERT INTO pricing_tiers (service_id, label, sort_order, price) VALUES ($1, $2, $3, $4::numeric)`,
				s.id, t[0], i+1, t[1]); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO bundles (id, title, price) VALUES ($1, 'Brand Starter Pack', 499.00)
ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, price = EXCLUDED.price`, starterPackID); err != nil {
		return err
	}
	for _, sid := range []string{logoCleanupID, bannerDesignID} {
		if _, err := tx.Exec(ctx, `INSERT INTO bundle_items (bundle_id, service_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, starterPackID, sid); err != nil {
			return err
		}
	}
	return nil
}

func seedAgreements(ctx context.Context, tx pgx.Tx) error {
	rates, err := json.Marshal(map[string]any{
		"Logo Cleanup": map[string]any{
			"quantity": []map[string]string{
				{"label": "1-40", "amount": "0.90"},
				{"label": "41-80", "amount": "0.75"},
				{"label": "80+", "amount": "0.60"},
			},
		},
		"Banner Design": map[string]any{
			"base_price": "12.00",
			"complexity": []map[string]string{
				{"label": "basic", "amount": "10.00"},
				{"label": "advanced", "amount": "30.00"},
			},
		},
	})
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO vendor_agreements (vendor_id, service_rates) VALUES ($1, $2)
ON CONFLICT (vendor_id) DO UPDATE SET service_rates = EXCLUDED.service_rates, updated_at = now()`,
		vendorID, rates); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO vendor_bundle_costs (vendor_id, bundle_id, cost) VALUES ($1, $2, 120.00)
ON CONFLICT (vendor_id, bundle_id) DO UPDATE SET cost = EXCLUDED.cost`, vendorID, starterPackID)
	return err
}

func seedCoupons(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
INSERT INTO coupons (code, type, value, min_spend, per_client_limit)
VALUES ('TENOFF', 'fixed', 10.00, 50.00, 1), ('SPRING15', 'percentage', 15.00, 0, NULL)
ON CONFLICT (code) DO NOTHING`)
	return err
}

func seedRequests(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `
INSERT INTO requests (id, service_id, client_id, created_by, assigned_to, method, form_data)
VALUES ($1, $2, $3, $3, $4, 'portal', '{"amount_of_products": 60}'::jsonb)
ON CONFLICT (id) DO NOTHING`, sampleReqID, logoCleanupID, clientID, memberID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
INSERT INTO bundle_requests (id, bundle_id, client_id, created_by, assigned_to, method)
VALUES ($1, $2, $3, $3, $4, 'portal')
ON CONFLICT (id) DO NOTHING`, sampleBundleID, starterPackID, clientID, vendorID)
	return err
}
