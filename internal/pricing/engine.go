package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tripod-pricing/internal/tier"
)

// Structure identifies how a service is priced.
type Structure string

const (
	// StructureSingle charges the flat base price.
	StructureSingle Structure = "single"
	// StructureComplexity charges a flat price keyed by complexity level.
	StructureComplexity Structure = "complexity"
	// StructureQuantity charges a per-unit price keyed by quantity bracket.
	StructureQuantity Structure = "quantity"
)

// Source describes where a resolved price came from.
type Source string

const (
	SourceStored      Source = "stored"
	SourceBase        Source = "base"
	SourceTier        Source = "tier"
	SourceBundle      Source = "bundle"
	SourceUnavailable Source = "unavailable"
)

// Reasons reported alongside an unavailable price.
const (
	ReasonUnknownStructure = "unknown_structure"
	ReasonMissingField     = "missing_field"
	ReasonNoTierMatch      = "no_tier_match"
)

// Tier is a client-facing pricing tier attached to a service definition.
type Tier struct {
	Label     string          `json:"label"`
	SortOrder int             `json:"sort_order"`
	Amount    decimal.Decimal `json:"amount"`
}

// ServiceDefinition is a catalog entry as currently configured.
type ServiceDefinition struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Structure  Structure       `json:"pricing_structure"`
	BasePrice  decimal.Decimal `json:"base_price"`
	PriceRange string          `json:"price_range,omitempty"`
	Tiers      []Tier          `json:"tiers,omitempty"`
}

// Bundle is a fixed collection of services sold at one aggregate price.
type Bundle struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

// Resolution is the undiscounted retail price for a request.
type Resolution struct {
	Amount    decimal.Decimal `json:"amount"`
	Available bool            `json:"available"`
	Source    Source          `json:"source"`
	Reason    string          `json:"reason,omitempty"`
	Quantity  int64           `json:"quantity,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// TierEntries converts the service tiers into matcher entries, keeping table order.
func (s ServiceDefinition) TierEntries() []tier.Entry {
	out := make([]tier.Entry, 0, len(s.Tiers))
	for _, t := range s.Tiers {
		out = append(out, tier.Entry{Label: t.Label, Amount: t.Amount})
	}
	return out
}

// NormalizeStructure lower-cases and trims a stored structure value.
func NormalizeStructure(value string) Structure {
	return Structure(strings.ToLower(strings.TrimSpace(value)))
}

// ResolveRetailPrice returns the undiscounted price for a service request.
// A stored final price always wins so finalized requests are not repriced
// when the catalog changes.
func ResolveRetailPrice(service ServiceDefinition, form FormData, stored *decimal.Decimal) Resolution {
	if stored != nil {
		return Resolution{Amount: *stored, Available: true, Source: SourceStored}
	}
	switch NormalizeStructure(string(service.Structure)) {
	case StructureSingle:
		return Resolution{Amount: service.BasePrice, Available: true, Source: SourceBase}
	case StructureComplexity:
		level := form.Complexity()
		if level == "" {
			return unavailable(ReasonMissingField)
		}
		amount, ok := tier.MatchComplexity(level, service.TierEntries())
		if !ok {
			return unavailable(ReasonNoTierMatch)
		}
		return Resolution{Amount: amount, Available: true, Source: SourceTier}
	case StructureQuantity:
		qty, present := form.Quantity()
		if !present {
			return unavailable(ReasonMissingField)
		}
		unit, ok := tier.MatchQuantity(qty, service.TierEntries())
		if !ok {
			res := unavailable(ReasonNoTierMatch)
			res.Quantity = qty
			return res
		}
		return Resolution{
			Amount:    unit.Mul(decimal.NewFromInt(qty)),
			Available: true,
			Source:    SourceTier,
			Quantity:  qty,
			UnitPrice: unit,
		}
	default:
		return unavailable(ReasonUnknownStructure)
	}
}

// ResolveBundlePrice prices a bundle request at the bundle's catalog price
// unless a stored final price exists.
func ResolveBundlePrice(bundle Bundle, stored *decimal.Decimal) Resolution {
	if stored != nil {
		return Resolution{Amount: *stored, Available: true, Source: SourceStored}
	}
	return Resolution{Amount: bundle.Price, Available: true, Source: SourceBundle}
}

func unavailable(reason string) Resolution {
	return Resolution{Amount: decimal.Zero, Source: SourceUnavailable, Reason: reason}
}
