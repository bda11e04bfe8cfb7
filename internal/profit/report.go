package profit

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tripod-pricing/internal/pricing"
	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

// Kind tells ad-hoc rows apart from bundle rows.
type Kind string

const (
	KindRequest Kind = "request"
	KindBundle  Kind = "bundle"
)

// Request is an ad-hoc single-service request as stored.
type Request struct {
	ID               string               `json:"id"`
	ServiceID        string               `json:"service_id"`
	ClientID         string               `json:"client_id"`
	Method           string               `json:"method"`
	FormData         pricing.FormData     `json:"form_data,omitempty"`
	StoredFinalPrice *decimal.Decimal     `json:"stored_final_price,omitempty"`
	StoredDiscount   *decimal.Decimal     `json:"stored_discount,omitempty"`
	CreatedByRole    vendorcost.Role      `json:"created_by_role"`
	Assignee         *vendorcost.Assignee `json:"assignee,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

// BundleRequest is a request for a whole bundle.
type BundleRequest struct {
	ID               string               `json:"id"`
	BundleID         string               `json:"bundle_id"`
	ClientID         string               `json:"client_id"`
	Method           string               `json:"method"`
	StoredFinalPrice *decimal.Decimal     `json:"stored_final_price,omitempty"`
	StoredDiscount   *decimal.Decimal     `json:"stored_discount,omitempty"`
	CreatedByRole    vendorcost.Role      `json:"created_by_role"`
	Assignee         *vendorcost.Assignee `json:"assignee,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

// Input is everything a report is computed from.
type Input struct {
	Requests       []Request
	BundleRequests []BundleRequest
	Services       map[string]pricing.ServiceDefinition
	Bundles        map[string]pricing.Bundle
	Agreements     vendorcost.Agreements
	BundleCosts    vendorcost.BundleCosts
}

// Row is one itemized report line.
type Row struct {
	RequestID      string                `json:"request_id"`
	Kind           Kind                  `json:"kind"`
	ItemID         string                `json:"item_id"`
	ItemTitle      string                `json:"item_title,omitempty"`
	ClientID       string                `json:"client_id"`
	VendorID       string                `json:"vendor_id,omitempty"`
	Method         string                `json:"method"`
	CreatedAt      time.Time             `json:"created_at"`
	RetailPrice    decimal.Decimal       `json:"retail_price"`
	VendorCost     decimal.Decimal       `json:"vendor_cost"`
	Discount       decimal.Decimal       `json:"discount"`
	Profit         decimal.Decimal       `json:"profit"`
	PriceSource    pricing.Source        `json:"price_source"`
	PriceReason    string                `json:"price_reason,omitempty"`
	CostProvenance vendorcost.Provenance `json:"cost_provenance"`
}

// Totals sums the numeric row fields.
type Totals struct {
	Count         int             `json:"count"`
	RetailPrice   decimal.Decimal `json:"retail_price"`
	VendorCost    decimal.Decimal `json:"vendor_cost"`
	Discount      decimal.Decimal `json:"discount"`
	Profit        decimal.Decimal `json:"profit"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

// Report is the itemized and summarized profit view.
type Report struct {
	Rows        []Row     `json:"rows"`
	Totals      Totals    `json:"totals"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BuildReport prices every request, applies filters and sums the survivors.
func BuildReport(in Input, filters Filters) Report {
	f := filters.normalize()
	rows := make([]Row, 0, len(in.Requests)+len(in.BundleRequests))
	for _, req := range in.Requests {
		row := RequestRow(req, in.Services[req.ServiceID], in.Agreements)
		if f.match(row) {
			rows = append(rows, row)
		}
	}
	for _, req := range in.BundleRequests {
		bundle, ok := in.Bundles[req.BundleID]
		if !ok {
			bundle = pricing.Bundle{ID: req.BundleID}
		}
		row := BundleRow(req, bundle, in.BundleCosts)
		if f.match(row) {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].RequestID < rows[j].RequestID
	})
	return Report{Rows: rows, Totals: Sum(rows)}
}

// RequestRow resolves one ad-hoc request. An unknown service leaves the
// definition empty so the price resolves as unavailable.
func RequestRow(req Request, service pricing.ServiceDefinition, agreements vendorcost.Agreements) Row {
	res := pricing.ResolveRetailPrice(service, req.FormData, req.StoredFinalPrice)
	cost := vendorcost.Resolve(service, req.FormData, req.Assignee, agreements)
	row := Row{
		RequestID:   req.ID,
		Kind:        KindRequest,
		ItemID:      req.ServiceID,
		ItemTitle:   service.Title,
		ClientID:    req.ClientID,
		Method:      req.Method,
		CreatedAt:   req.CreatedAt,
		PriceSource: res.Source,
		PriceReason: res.Reason,
	}
	return finish(row, res.Amount, bakedDiscount(req.StoredFinalPrice, req.StoredDiscount), cost, req.CreatedByRole)
}

// BundleRow resolves one bundle request.
func BundleRow(req BundleRequest, bundle pricing.Bundle, costs vendorcost.BundleCosts) Row {
	res := pricing.ResolveBundlePrice(bundle, req.StoredFinalPrice)
	cost := vendorcost.ResolveBundle(req.BundleID, req.Assignee, costs)
	row := Row{
		RequestID:   req.ID,
		Kind:        KindBundle,
		ItemID:      req.BundleID,
		ItemTitle:   bundle.Title,
		ClientID:    req.ClientID,
		Method:      req.Method,
		CreatedAt:   req.CreatedAt,
		PriceSource: res.Source,
	}
	return finish(row, res.Amount, bakedDiscount(req.StoredFinalPrice, req.StoredDiscount), cost, req.CreatedByRole)
}

func finish(row Row, retail, disc decimal.Decimal, cost vendorcost.Cost, createdBy vendorcost.Role) Row {
	// admin-created requests are test or housekeeping traffic
	if isAdmin(createdBy) {
		retail = decimal.Zero
		disc = decimal.Zero
	}
	row.RetailPrice = retail
	row.VendorCost = cost.Amount
	row.VendorID = cost.VendorID
	row.CostProvenance = cost.Provenance
	row.Discount = disc
	row.Profit = retail.Sub(cost.Amount).Sub(disc)
	return row
}

// bakedDiscount is the discount recorded with a finalized price. Without a
// stored price nothing has been applied yet.
func bakedDiscount(storedFinal, storedDiscount *decimal.Decimal) decimal.Decimal {
	if storedFinal == nil || storedDiscount == nil || storedDiscount.IsNegative() {
		return decimal.Zero
	}
	return *storedDiscount
}

func isAdmin(role vendorcost.Role) bool {
	return strings.EqualFold(strings.TrimSpace(string(role)), string(vendorcost.RoleAdmin))
}

// Sum totals the rows and derives the margin.
func Sum(rows []Row) Totals {
	t := Totals{
		Count:         len(rows),
		RetailPrice:   decimal.Zero,
		VendorCost:    decimal.Zero,
		Discount:      decimal.Zero,
		Profit:        decimal.Zero,
		MarginPercent: decimal.Zero,
	}
	for _, r := range rows {
		t.RetailPrice = t.RetailPrice.Add(r.RetailPrice)
		t.VendorCost = t.VendorCost.Add(r.VendorCost)
		t.Discount = t.Discount.Add(r.Discount)
		t.Profit = t.Profit.Add(r.Profit)
	}
	t.MarginPercent = Margin(t.Profit, t.RetailPrice)
	return t
}

// Margin returns profit as a percentage of retail rounded to two places, or
// zero when retail is zero.
func Margin(profit, retail decimal.Decimal) decimal.Decimal {
	if retail.IsZero() {
		return decimal.Zero
	}
	return profit.Mul(decimal.NewFromInt(100)).DivRound(retail, 2)
}
