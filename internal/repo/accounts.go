package repo

import (
	"context"

	"github.com/noah-isme/tripod-pricing/internal/discount"
	"github.com/noah-isme/tripod-pricing/internal/quote"
	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

// GetAccount returns the pricing-relevant fields of a user.
func (s *Store) GetAccount(ctx context.Context, id string) (quote.Account, error) {
	id, err := validID(id)
	if err != nil {
		return quote.Account{}, err
	}
	var (
		acc    quote.Account
		role   string
		parent *string
		tier   string
	)
	err = s.DB.QueryRow(ctx, `
SELECT id::text, role, parent_vendor_id::text, discount_tier
FROM users WHERE id = $1::uuid`, id).Scan(&acc.ID, &role, &parent, &tier)
	if err != nil {
		return quote.Account{}, err
	}
	acc.Role = vendorcost.Role(role)
	if parent != nil {
		acc.ParentVendorID = *parent
	}
	acc.DiscountTier = discount.NormalizeTier(tier)
	return acc, nil
}
