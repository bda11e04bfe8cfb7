package vendorcost

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tripod-pricing/internal/pricing"
	"github.com/noah-isme/tripod-pricing/internal/tier"
)

// Role is the principal role of whoever is assigned to a request.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDesigner     Role = "designer"
	RoleStaff        Role = "staff"
	RoleVendor       Role = "vendor"
	RoleVendorMember Role = "vendor_member"
	RoleClient       Role = "client"
)

// Provenance explains why a cost has the value it has. It separates zero
// costs caused by internal work from zero costs caused by missing data.
type Provenance string

const (
	ProvenanceAgreement     Provenance = "agreement"
	ProvenanceInternal      Provenance = "internal"
	ProvenanceUnassigned    Provenance = "unassigned"
	ProvenanceNoAgreement   Provenance = "no_agreement"
	ProvenanceNoServiceRate Provenance = "no_service_rate"
	ProvenanceUnmatched     Provenance = "unmatched"
)

// Assignee is the principal fulfilling a request.
type Assignee struct {
	ID             string `json:"id"`
	Role           Role   `json:"role"`
	ParentVendorID string `json:"parent_vendor_id,omitempty"`
}

// IsInternal reports whether the assignee is an in-house resource.
func (a Assignee) IsInternal() bool {
	switch normalizeRole(a.Role) {
	case RoleAdmin, RoleDesigner, RoleStaff:
		return true
	default:
		return false
	}
}

// VendorID resolves the vendor a cost is owed to. Sub-members resolve to
// their parent vendor.
func (a Assignee) VendorID() (string, bool) {
	switch normalizeRole(a.Role) {
	case RoleVendor:
		id := strings.TrimSpace(a.ID)
		return id, id != ""
	case RoleVendorMember:
		id := strings.TrimSpace(a.ParentVendorID)
		return id, id != ""
	default:
		return "", false
	}
}

// Rate is what a vendor charges for one service.
type Rate struct {
	BasePrice  *decimal.Decimal `json:"base_price,omitempty"`
	Complexity []tier.Entry     `json:"complexity,omitempty"`
	Quantity   []tier.Entry     `json:"quantity,omitempty"`
}

// Agreement is a vendor's cost table keyed by service title.
type Agreement struct {
	VendorID string          `json:"vendor_id"`
	Services map[string]Rate `json:"services"`
}

// Agreements indexes agreements by vendor id.
type Agreements map[string]Agreement

// RateFor finds the rate for a service title. Exact titles win; otherwise a
// case-insensitive match is used.
func (a Agreement) RateFor(title string) (Rate, bool) {
	if r, ok := a.Services[title]; ok {
		return r, true
	}
	wanted := strings.TrimSpace(title)
	for name, r := range a.Services {
		if strings.EqualFold(strings.TrimSpace(name), wanted) {
			return r, true
		}
	}
	return Rate{}, false
}

// Cost is the amount owed to the fulfilling vendor.
type Cost struct {
	Amount     decimal.Decimal `json:"amount"`
	Provenance Provenance      `json:"provenance"`
	VendorID   string          `json:"vendor_id,omitempty"`
}

// Resolve computes the vendor cost for an ad-hoc request. Missing data
// always resolves to zero, never to the retail price.
func Resolve(service pricing.ServiceDefinition, form pricing.FormData, assignee *Assignee, agreements Agreements) Cost {
	vendorID, prov, ok := identify(assignee)
	if !ok {
		return zero(prov, "")
	}
	agreement, ok := agreements[vendorID]
	if !ok {
		return zero(ProvenanceNoAgreement, vendorID)
	}
	rate, ok := agreement.RateFor(service.Title)
	if !ok {
		return zero(ProvenanceNoServiceRate, vendorID)
	}
	amount, ok := rateAmount(service.Structure, rate, form)
	if !ok {
		return zero(ProvenanceUnmatched, vendorID)
	}
	return Cost{Amount: amount, Provenance: ProvenanceAgreement, VendorID: vendorID}
}

func rateAmount(structure pricing.Structure, rate Rate, form pricing.FormData) (decimal.Decimal, bool) {
	switch pricing.NormalizeStructure(string(structure)) {
	case pricing.StructureComplexity:
		if level := form.Complexity(); level != "" {
			if amount, ok := tier.MatchComplexity(level, rate.Complexity); ok {
				return amount, true
			}
		}
	case pricing.StructureQuantity:
		if qty, present := form.Quantity(); present {
			if unit, ok := tier.MatchQuantity(qty, rate.Quantity); ok {
				return unit.Mul(decimal.NewFromInt(qty)), true
			}
		}
	}
	if rate.BasePrice != nil {
		return *rate.BasePrice, true
	}
	return decimal.Zero, false
}

// BundleKey addresses a flat per-bundle vendor cost.
type BundleKey struct {
	VendorID string
	BundleID string
}

// BundleCosts is the flat (vendor, bundle) cost table.
type BundleCosts map[BundleKey]decimal.Decimal

// ResolveBundle looks up the cost of a bundle request. Bundles are never
// decomposed into per-service costs.
func ResolveBundle(bundleID string, assignee *Assignee, costs BundleCosts) Cost {
	vendorID, prov, ok := identify(assignee)
	if !ok {
		return zero(prov, "")
	}
	amount, ok := costs[BundleKey{VendorID: vendorID, BundleID: bundleID}]
	if !ok {
		return zero(ProvenanceNoAgreement, vendorID)
	}
	return Cost{Amount: amount, Provenance: ProvenanceAgreement, VendorID: vendorID}
}

func identify(assignee *Assignee) (string, Provenance, bool) {
	if assignee == nil || strings.TrimSpace(assignee.ID) == "" {
		return "", ProvenanceUnassigned, false
	}
	if assignee.IsInternal() {
		return "", ProvenanceInternal, false
	}
	vendorID, ok := assignee.VendorID()
	if !ok {
		// clients and unknown roles cannot be owed a fulfillment cost
		return "", ProvenanceUnassigned, false
	}
	return vendorID, "", true
}

func zero(prov Provenance, vendorID string) Cost {
	return Cost{Amount: decimal.Zero, Provenance: prov, VendorID: vendorID}
}

func normalizeRole(r Role) Role {
	return Role(strings.ToLower(strings.TrimSpace(string(r))))
}
