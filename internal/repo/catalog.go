package repo

import (
	"context"

	"github.com/noah-isme/tripod-pricing/internal/pricing"
)

const serviceColumns = `id::text, title, pricing_structure, base_price::text, price_range`

// ListServices returns every service, retired ones included, with its tiers
// in table order.
func (s *Store) ListServices(ctx context.Context) ([]pricing.ServiceDefinition, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.ServiceDefinition
	index := map[string]int{}
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		index[svc.ID] = len(out)
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tiers, err := s.listTiers(ctx, nil)
	if err != nil {
		return nil, err
	}
	for serviceID, list := range tiers {
		if i, ok := index[serviceID]; ok {
			out[i].Tiers = list
		}
	}
	return out, nil
}

// GetService returns one service by id, active or not.
func (s *Store) GetService(ctx context.Context, id string) (pricing.ServiceDefinition, error) {
	id, err := validID(id)
	if err != nil {
		return pricing.ServiceDefinition{}, err
	}
	svc, err := scanService(s.DB.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1::uuid`, id))
	if err != nil {
		return pricing.ServiceDefinition{}, err
	}
	tiers, err := s.listTiers(ctx, &id)
	if err != nil {
		return pricing.ServiceDefinition{}, err
	}
	svc.Tiers = tiers[svc.ID]
	return svc, nil
}

// ListBundles returns every bundle.
func (s *Store) ListBundles(ctx context.Context) ([]pricing.Bundle, error) {
	rows, err := s.DB.Query(ctx, `SELECT id::text, title, price::text FROM bundles ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pricing.Bundle
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBundle returns one bundle by id.
func (s *Store) GetBundle(ctx context.Context, id string) (pricing.Bundle, error) {
	id, err := validID(id)
	if err != nil {
		return pricing.Bundle{}, err
	}
	return scanBundle(s.DB.QueryRow(ctx, `SELECT id::text, title, price::text FROM bundles WHERE id = $1::uuid`, id))
}

func (s *Store) listTiers(ctx context.Context, serviceID *string) (map[string][]pricing.Tier, error) {
	rows, err := s.DB.Query(ctx, `
SELECT service_id::text, label, sort_order, price::text
FROM pricing_tiers
WHERE ($1::uuid IS NULL OR service_id = $1::uuid)
ORDER BY service_id, sort_order, label`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string][]pricing.Tier{}
	for rows.Next() {
		var (
			sid   string
			tier  pricing.Tier
			price string
		)
		if err := rows.Scan(&sid, &tier.Label, &tier.SortOrder, &price); err != nil {
			return nil, err
		}
		if tier.Amount, err = parseDecimal(price); err != nil {
			return nil, err
		}
		out[sid] = append(out[sid], tier)
	}
	return out, rows.Err()
}

func scanService(row interface{ Scan(...any) error }) (pricing.ServiceDefinition, error) {
	var (
		svc       pricing.ServiceDefinition
		structure string
		base      string
	)
	if err := row.Scan(&svc.ID, &svc.Title, &structure, &base, &svc.PriceRange); err != nil {
		return pricing.ServiceDefinition{}, err
	}
	svc.Structure = pricing.NormalizeStructure(structure)
	amount, err := parseDecimal(base)
	if err != nil {
		return pricing.ServiceDefinition{}, err
	}
	svc.BasePrice = amount
	return svc, nil
}

func scanBundle(row interface{ Scan(...any) error }) (pricing.Bundle, error) {
	var (
		b     pricing.Bundle
		price string
	)
	if err := row.Scan(&b.ID, &b.Title, &price); err != nil {
		return pricing.Bundle{}, err
	}
	amount, err := parseDecimal(price)
	if err != nil {
		return pricing.Bundle{}, err
	}
	b.Price = amount
	return b, nil
}
