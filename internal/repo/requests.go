package repo

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/tripod-pricing/internal/pricing"
	"github.com/noah-isme/tripod-pricing/internal/profit"
	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

const requestColumns = `
r.id::text, r.service_id::text, COALESCE(r.client_id::text, ''), r.method, r.form_data,
r.final_price::text, r.discount_amount::text, COALESCE(c.role, ''),
a.id::text, COALESCE(a.role, ''), a.parent_vendor_id::text, r.created_at`

const requestFrom = `
FROM requests r
LEFT JOIN users c ON c.id = r.created_by
LEFT JOIN users a ON a.id = r.assigned_to`

const bundleRequestColumns = `
r.id::text, r.bundle_id::text, COALESCE(r.client_id::text, ''), r.method,
r.final_price::text, r.discount_amount::text, COALESCE(c.role, ''),
a.id::text, COALESCE(a.role, ''), a.parent_vendor_id::text, r.created_at`

const bundleRequestFrom = `
FROM bundle_requests r
LEFT JOIN users c ON c.id = r.created_by
LEFT JOIN users a ON a.id = r.assigned_to`

const windowWhere = `
WHERE ($1::timestamptz IS NULL OR r.created_at >= $1)
  AND ($2::timestamptz IS NULL OR r.created_at < $2)
ORDER BY r.created_at, r.id`

// ListRequests returns the ad-hoc requests created inside w.
func (s *Store) ListRequests(ctx context.Context, w profit.Window) ([]profit.Request, error) {
	from, to := windowBounds(w)
	rows, err := s.DB.Query(ctx, `SELECT `+requestColumns+requestFrom+windowWhere, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []profit.Request
	for rows.Next() {
		req, err := scanRequest(rows, s.Log)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ListBundleRequests returns the bundle requests created inside w.
func (s *Store) ListBundleRequests(ctx context.Context, w profit.Window) ([]profit.BundleRequest, error) {
	from, to := windowBounds(w)
	rows, err := s.DB.Query(ctx, `SELECT `+bundleRequestColumns+bundleRequestFrom+windowWhere, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []profit.BundleRequest
	for rows.Next() {
		req, err := scanBundleRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// GetRequest returns one ad-hoc request.
func (s *Store) GetRequest(ctx context.Context, id string) (profit.Request, error) {
	id, err := validID(id)
	if err != nil {
		return profit.Request{}, err
	}
	return scanRequest(s.DB.QueryRow(ctx, `SELECT `+requestColumns+requestFrom+` WHERE r.id = $1::uuid`, id), s.Log)
}

// GetBundleRequest returns one bundle request.
func (s *Store) GetBundleRequest(ctx context.Context, id string) (profit.BundleRequest, error) {
	id, err := validID(id)
	if err != nil {
		return profit.BundleRequest{}, err
	}
	return scanBundleRequest(s.DB.QueryRow(ctx, `SELECT `+bundleRequestColumns+bundleRequestFrom+` WHERE r.id = $1::uuid`, id))
}

// windowBounds turns inclusive calendar days into a half-open timestamp range.
func windowBounds(w profit.Window) (*time.Time, *time.Time) {
	var from, to *time.Time
	if w.From != nil {
		f := dayStart(*w.From)
		from = &f
	}
	if w.To != nil {
		t := dayStart(*w.To).AddDate(0, 0, 1)
		to = &t
	}
	return from, to
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type assigneeCols struct {
	id     *string
	role   string
	parent *string
}

func (a assigneeCols) assignee() *vendorcost.Assignee {
	if a.id == nil {
		return nil
	}
	out := &vendorcost.Assignee{ID: *a.id, Role: vendorcost.Role(a.role)}
	if a.parent != nil {
		out.ParentVendorID = *a.parent
	}
	return out
}

func scanRequest(row interface{ Scan(...any) error }, log zerolog.Logger) (profit.Request, error) {
	var (
		req             profit.Request
		form            []byte
		final, discount *string
		creator         string
		a               assigneeCols
	)
	err := row.Scan(&req.ID, &req.ServiceID, &req.ClientID, &req.Method, &form,
		&final, &discount, &creator, &a.id, &a.role, &a.parent, &req.CreatedAt)
	if err != nil {
		return profit.Request{}, err
	}
	if req.FormData, err = pricing.DecodeFormData(form); err != nil {
		// the price resolves as unavailable instead of failing the caller
		log.Warn().Err(err).Str("request_id", req.ID).Msg("malformed request form data")
		req.FormData = pricing.FormData{}
	}
	if req.StoredFinalPrice, err = parseDecimalPtr(final); err != nil {
		return profit.Request{}, err
	}
	if req.StoredDiscount, err = parseDecimalPtr(discount); err != nil {
		return profit.Request{}, err
	}
	req.CreatedByRole = vendorcost.Role(creator)
	req.Assignee = a.assignee()
	return req, nil
}

func scanBundleRequest(row interface{ Scan(...any) error }) (profit.BundleRequest, error) {
	var (
		req             profit.BundleRequest
		final, discount *string
		creator         string
		a               assigneeCols
	)
	err := row.Scan(&req.ID, &req.BundleID, &req.ClientID, &req.Method,
		&final, &discount, &creator, &a.id, &a.role, &a.parent, &req.CreatedAt)
	if err != nil {
		return profit.BundleRequest{}, err
	}
	if req.StoredFinalPrice, err = parseDecimalPtr(final); err != nil {
		return profit.BundleRequest{}, err
	}
	if req.StoredDiscount, err = parseDecimalPtr(discount); err != nil {
		return profit.BundleRequest{}, err
	}
	req.CreatedByRole = vendorcost.Role(creator)
	req.Assignee = a.assignee()
	return req, nil
}
