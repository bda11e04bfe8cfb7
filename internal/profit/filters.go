package profit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/tripod-pricing/internal/common"
)

const dayLayout = "2006-01-02"

// Filters narrow a report. Every set field must match; empty fields match
// everything.
type Filters struct {
	VendorIDs  []string   `json:"vendor_ids,omitempty"`
	ServiceIDs []string   `json:"service_ids,omitempty"`
	BundleIDs  []string   `json:"bundle_ids,omitempty"`
	Methods    []string   `json:"methods,omitempty"`
	ClientIDs  []string   `json:"client_ids,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	Search     string     `json:"search,omitempty"`
}

func (f Filters) normalize() Filters {
	out := Filters{
		VendorIDs:  normalizeSet(f.VendorIDs, false),
		ServiceIDs: normalizeSet(f.ServiceIDs, false),
		BundleIDs:  normalizeSet(f.BundleIDs, false),
		Methods:    normalizeSet(f.Methods, true),
		ClientIDs:  normalizeSet(f.ClientIDs, false),
		Search:     strings.ToLower(strings.TrimSpace(f.Search)),
	}
	if f.From != nil {
		d := day(*f.From)
		out.From = &d
	}
	if f.To != nil {
		d := day(*f.To)
		out.To = &d
	}
	return out
}

// match applies every predicate to row. The receiver must already be
// normalized.
func (f Filters) match(row Row) bool {
	return f.matchVendor(row) &&
		f.matchItem(row) &&
		f.matchMethod(row) &&
		f.matchClient(row) &&
		f.matchDate(row) &&
		f.matchSearch(row)
}

func (f Filters) matchVendor(row Row) bool {
	return len(f.VendorIDs) == 0 || contains(f.VendorIDs, row.VendorID)
}

// matchItem keeps service rows listed in ServiceIDs and bundle rows listed
// in BundleIDs. Once either list is set, rows of the other kind need their
// own list to pass.
func (f Filters) matchItem(row Row) bool {
	if len(f.ServiceIDs) == 0 && len(f.BundleIDs) == 0 {
		return true
	}
	switch row.Kind {
	case KindBundle:
		return contains(f.BundleIDs, row.ItemID)
	default:
		return contains(f.ServiceIDs, row.ItemID)
	}
}

func (f Filters) matchMethod(row Row) bool {
	return len(f.Methods) == 0 || contains(f.Methods, strings.ToLower(strings.TrimSpace(row.Method)))
}

func (f Filters) matchClient(row Row) bool {
	return len(f.ClientIDs) == 0 || contains(f.ClientIDs, row.ClientID)
}

// matchDate compares calendar days in UTC, so both endpoints are inclusive.
func (f Filters) matchDate(row Row) bool {
	d := day(row.CreatedAt)
	if f.From != nil && d.Before(*f.From) {
		return false
	}
	if f.To != nil && d.After(*f.To) {
		return false
	}
	return true
}

func (f Filters) matchSearch(row Row) bool {
	return f.Search == "" || strings.Contains(strings.ToLower(row.RequestID), f.Search)
}

// CacheKey hashes the normalized filters so equivalent filter sets share a key.
func (f Filters) CacheKey() string {
	n := f.normalize()
	parts := []string{
		"v=" + strings.Join(n.VendorIDs, ","),
		"s=" + strings.Join(n.ServiceIDs, ","),
		"b=" + strings.Join(n.BundleIDs, ","),
		"m=" + strings.Join(n.Methods, ","),
		"c=" + strings.Join(n.ClientIDs, ","),
		"f=" + formatDay(n.From),
		"t=" + formatDay(n.To),
		"q=" + n.Search,
	}
	return common.Fingerprint(parts...)
}

// ParseDay parses a YYYY-MM-DD or RFC3339 value into a UTC day.
func ParseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(dayLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return day(t), nil
}

func day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dayLayout)
}

func normalizeSet(values []string, lower bool) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func contains(set []string, v string) bool {
	i := sort.SearchStrings(set, v)
	return i < len(set) && set[i] == v
}
