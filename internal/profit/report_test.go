package profit

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tripod-pricing/internal/pricing"
	"github.com/noah-isme/tripod-pricing/internal/tier"
	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func vendor(id string) *vendorcost.Assignee {
	return &vendorcost.Assignee{ID: id, Role: vendorcost.RoleVendor}
}

func fixture() Input {
	logo := pricing.ServiceDefinition{
		ID:        "svc-logo",
		Title:     "Logo Cleanup",
		Structure: pricing.StructureQuantity,
		Tiers: []pricing.Tier{
			{Label: "1-50", Amount: dec("2.00")},
			{Label: "51-75", Amount: dec("1.80")},
			{Label: ">101", Amount: dec("1.30")},
		},
	}
	return Input{
		Requests: []Request{
			{ID: "r-100", ServiceID: "svc-logo", ClientID: "c1", Method: "Card",
				FormData: pricing.FormData{"amount_of_products": "60"}, Assignee: vendor("v1"),
				CreatedAt: at("2024-03-01T10:00:00Z")},
			{ID: "r-101", ServiceID: "svc-logo", ClientID: "c2", Method: "invoice",
				FormData:         pricing.FormData{"amount_of_products": "60"},
				StoredFinalPrice: decPtr("81.80"), StoredDiscount: decPtr("26.20"),
				Assignee: vendor("v1"), CreatedAt: at("2024-03-31T23:59:00Z")},
			{ID: "r-102", ServiceID: "svc-logo", ClientID: "", Method: "card",
				FormData: pricing.FormData{"amount_of_products": "60"}, CreatedByRole: vendorcost.RoleAdmin,
				Assignee: &vendorcost.Assignee{ID: "d1", Role: vendorcost.RoleDesigner},
				CreatedAt: at("2024-02-15T08:00:00Z")},
		},
		BundleRequests: []BundleRequest{
			{ID: "b-200", BundleID: "bundle-brand", ClientID: "c1", Method: "card",
				Assignee: vendor("v2"), CreatedAt: at("2024-03-10T12:00:00Z")},
		},
		Services: map[string]pricing.ServiceDefinition{"svc-logo": logo},
		Bundles: map[string]pricing.Bundle{
			"bundle-brand": {ID: "bundle-brand", Title: "Brand Kit", Price: dec("499.00")},
		},
		Agreements: vendorcost.Agreements{
			"v1": {VendorID: "v1", Services: map[string]vendorcost.Rate{
				"Logo Cleanup": {Quantity: []tier.Entry{{Label: "41-80", Amount: dec("0.75")}}},
			}},
		},
		BundleCosts: vendorcost.BundleCosts{
			{VendorID: "v2", BundleID: "bundle-brand"}: dec("120.00"),
		},
	}
}

func rowByID(t *testing.T, rows []Row, id string) Row {
	t.Helper()
	for _, r := range rows {
		if r.RequestID == id {
			return r
		}
	}
	t.Fatalf("row %s not found", id)
	return Row{}
}

func TestBuildReportRows(t *testing.T) {
	report := BuildReport(fixture(), Filters{})
	require.Len(t, report.Rows, 4)

	fresh := rowByID(t, report.Rows, "r-100")
	require.Equal(t, "108.00", fresh.RetailPrice.StringFixed(2))
	require.Equal(t, "45.00", fresh.VendorCost.StringFixed(2))
	require.True(t, fresh.Discount.IsZero())
	require.Equal(t, "63.00", fresh.Profit.StringFixed(2))
	require.Equal(t, vendorcost.ProvenanceAgreement, fresh.CostProvenance)
	require.Equal(t, pricing.SourceTier, fresh.PriceSource)

	stored := rowByID(t, report.Rows, "r-101")
	require.Equal(t, "81.80", stored.RetailPrice.StringFixed(2))
	require.Equal(t, "26.20", stored.Discount.StringFixed(2))
	require.Equal(t, "10.60", stored.Profit.StringFixed(2))
	require.Equal(t, pricing.SourceStored, stored.PriceSource)

	admin := rowByID(t, report.Rows, "r-102")
	require.True(t, admin.RetailPrice.IsZero(), "admin-created requests never count as revenue")
	require.True(t, admin.VendorCost.IsZero())
	require.Equal(t, vendorcost.ProvenanceInternal, admin.CostProvenance)

	bundle := rowByID(t, report.Rows, "b-200")
	require.Equal(t, KindBundle, bundle.Kind)
	require.Equal(t, "499.00", bundle.RetailPrice.StringFixed(2))
	require.Equal(t, "120.00", bundle.VendorCost.StringFixed(2))
	require.Equal(t, "v2", bundle.VendorID)
	require.Equal(t, "Brand Kit", bundle.ItemTitle)
}

func TestBuildReportOrdersByCreation(t *testing.T) {
	report := BuildReport(fixture(), Filters{})
	ids := make([]string, 0, len(report.Rows))
	for _, r := range report.Rows {
		ids = append(ids, r.RequestID)
	}
	require.Equal(t, []string{"r-102", "r-100", "b-200", "r-101"}, ids)
}

func TestBuildReportTotals(t *testing.T) {
	report := BuildReport(fixture(), Filters{})
	totals := report.Totals
	require.Equal(t, 4, totals.Count)
	require.Equal(t, "688.80", totals.RetailPrice.StringFixed(2))
	require.Equal(t, "210.00", totals.VendorCost.StringFixed(2))
	require.Equal(t, "26.20", totals.Discount.StringFixed(2))
	require.Equal(t, "452.60", totals.Profit.StringFixed(2))
	// 452.60 / 688.80 = 65.708...
	require.Equal(t, "65.71", totals.MarginPercent.StringFixed(2))
}

func TestMarginZeroRetail(t *testing.T) {
	rows := []Row{{RetailPrice: decimal.Zero, VendorCost: dec("40"), Profit: dec("-40")}}
	totals := Sum(rows)
	require.True(t, totals.MarginPercent.IsZero())
	require.Equal(t, "-40.00", totals.Profit.StringFixed(2))

	require.True(t, Sum(nil).MarginPercent.IsZero())
	require.Equal(t, "33.33", Margin(dec("1"), dec("3")).StringFixed(2))
}

func TestFiltersDateRangeInclusive(t *testing.T) {
	from := at("2024-03-01T15:00:00Z")
	to := at("2024-03-31T00:00:00Z")
	report := BuildReport(fixture(), Filters{From: &from, To: &to})
	require.Len(t, report.Rows, 3, "both endpoint days are included whatever the time of day")

	to = at("2024-03-30T00:00:00Z")
	report = BuildReport(fixture(), Filters{From: &from, To: &to})
	require.Len(t, report.Rows, 2)
}

func TestFiltersAreAndCombined(t *testing.T) {
	in := fixture()

	report := BuildReport(in, Filters{VendorIDs: []string{"v1"}})
	require.Len(t, report.Rows, 2)

	report = BuildReport(in, Filters{VendorIDs: []string{"v1"}, ClientIDs: []string{"c2"}})
	require.Len(t, report.Rows, 1)
	require.Equal(t, "r-101", report.Rows[0].RequestID)

	report = BuildReport(in, Filters{Methods: []string{" CARD "}})
	require.Len(t, report.Rows, 3)

	report = BuildReport(in, Filters{Search: "R-10"})
	require.Len(t, report.Rows, 3)

	report = BuildReport(in, Filters{Search: "r-1", Methods: []string{"invoice"}})
	require.Len(t, report.Rows, 1)
	require.Equal(t, "81.80", report.Totals.RetailPrice.StringFixed(2))
}

func TestFiltersServiceAndBundle(t *testing.T) {
	in := fixture()

	report := BuildReport(in, Filters{ServiceIDs: []string{"svc-logo"}})
	require.Len(t, report.Rows, 3)
	for _, r := range report.Rows {
		require.Equal(t, KindRequest, r.Kind)
	}

	report = BuildReport(in, Filters{BundleIDs: []string{"bundle-brand"}})
	require.Len(t, report.Rows, 1)
	require.Equal(t, KindBundle, report.Rows[0].Kind)

	report = BuildReport(in, Filters{ServiceIDs: []string{"svc-logo"}, BundleIDs: []string{"bundle-brand"}})
	require.Len(t, report.Rows, 4)
}

func TestUnknownServiceReportsUnavailable(t *testing.T) {
	in := fixture()
	in.Requests = append(in.Requests, Request{ID: "r-900", ServiceID: "svc-gone", ClientID: "c1",
		Assignee: vendor("v1"), CreatedAt: at("2024-04-01T00:00:00Z")})
	report := BuildReport(in, Filters{Search: "r-900"})
	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	require.Equal(t, pricing.SourceUnavailable, row.PriceSource)
	require.True(t, row.RetailPrice.IsZero())
	require.Equal(t, vendorcost.ProvenanceNoServiceRate, row.CostProvenance)
}

func TestCacheKeyNormalizes(t *testing.T) {
	a := Filters{VendorIDs: []string{"v2", "v1", "v1"}, Methods: []string{"Card"}}
	b := Filters{VendorIDs: []string{" v1", "v2"}, Methods: []string{"card"}}
	require.Equal(t, a.CacheKey(), b.CacheKey())

	from := at("2024-03-01T10:00:00Z")
	other := at("2024-03-01T22:00:00Z")
	require.Equal(t, Filters{From: &from}.CacheKey(), Filters{From: &other}.CacheKey())
	require.NotEqual(t, a.CacheKey(), Filters{}.CacheKey())
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-03-05")
	require.NoError(t, err)
	require.Equal(t, at("2024-03-05T00:00:00Z"), d)

	d, err = ParseDay("2024-03-05T23:30:00-02:00")
	require.NoError(t, err)
	require.Equal(t, at("2024-03-06T00:00:00Z"), d)

	_, err = ParseDay("yesterday")
	require.Error(t, err)
}

func TestMarginRoundsOnce(t *testing.T) {
	// 1.234499 / 10 * 100 = 12.34499
	require.Equal(t, "12.34", Margin(dec("1.234499"), dec("10")).StringFixed(2))
	require.Equal(t, "-12.35", Margin(dec("-1.2345"), dec("10")).StringFixed(2))
}
