package profit

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/tripod-pricing/internal/common"
)

// Handler exposes profit report endpoints.
type Handler struct {
	Svc       *Service
	Scheduler *Scheduler
}

type reportPage struct {
	Rows        []Row  `json:"rows"`
	Totals      Totals `json:"totals"`
	GeneratedAt string `json:"generated_at"`
}

// Report returns the filtered report. Rows are paginated; totals always
// cover the whole filtered set.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PROFIT_NOT_CONFIGURED", "profit service not configured", nil)
		return
	}
	filters, err := FiltersFromQuery(r)
	if err != nil {
		common.WriteError(w, common.BadRequest(err))
		return
	}
	report, err := h.Svc.Report(r.Context(), filters)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "PROFIT_REPORT_ERROR", err.Error(), nil)
		return
	}
	page := common.ParsePagination(r, 50)
	start, end := page.Bounds(len(report.Rows))
	common.JSON(w, http.StatusOK, common.Envelope{
		Data: reportPage{
			Rows:        report.Rows[start:end],
			Totals:      report.Totals,
			GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		},
		Pagination: &page,
	})
}

// Snapshot queues a background rebuild of the report for the query filters.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "SNAPSHOT_UNAVAILABLE", "snapshot queue not configured", nil)
		return
	}
	filters, err := FiltersFromQuery(r)
	if err != nil {
		common.WriteError(w, common.BadRequest(err))
		return
	}
	requestedBy, _ := common.UserID(r.Context())
	job, err := h.Scheduler.Enqueue(r.Context(), filters, requestedBy)
	if err != nil {
		if errors.Is(err, ErrSnapshotPending) {
			common.JSONError(w, http.StatusConflict, "SNAPSHOT_PENDING", err.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "SNAPSHOT_ERROR", err.Error(), nil)
		return
	}
	common.Data(w, http.StatusAccepted, job)
}

// FiltersFromQuery reads report filters from the query string. List values
// may repeat the parameter or be comma-separated.
func FiltersFromQuery(r *http.Request) (Filters, error) {
	q := r.URL.Query()
	f := Filters{
		VendorIDs:  listParam(q["vendor"]),
		ServiceIDs: listParam(q["service"]),
		BundleIDs:  listParam(q["bundle"]),
		Methods:    listParam(q["method"]),
		ClientIDs:  listParam(q["client"]),
		Search:     strings.TrimSpace(q.Get("q")),
	}
	if raw := q.Get("from"); raw != "" {
		from, err := ParseDay(raw)
		if err != nil {
			return Filters{}, errors.New("invalid from date")
		}
		f.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := ParseDay(raw)
		if err != nil {
			return Filters{}, errors.New("invalid to date")
		}
		f.To = &to
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return Filters{}, errors.New("from must not be after to")
	}
	return f, nil
}

func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
