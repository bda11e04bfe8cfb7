package profit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tripod-pricing/internal/common"
)

func TestHandlerReport(t *testing.T) {
	h := &Handler{Svc: &Service{Store: &stubStore{in: fixture()}, Log: zerolog.Nop()}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/profit?vendor=v1,v2&from=2024-03-01&to=2024-03-31&limit=2", nil)
	rec := httptest.NewRecorder()

	h.Report(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Rows   []Row  `json:"rows"`
			Totals Totals `json:"totals"`
		} `json:"data"`
		Pagination common.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Rows, 2)
	require.Equal(t, 3, body.Data.Totals.Count)
	require.Equal(t, 3, body.Pagination.TotalItems)
	require.Equal(t, "688.80", body.Data.Totals.RetailPrice.StringFixed(2))
}

func TestHandlerReportBadDates(t *testing.T) {
	h := &Handler{Svc: &Service{Store: &stubStore{in: fixture()}, Log: zerolog.Nop()}}
	for _, q := range []string{"from=nope", "to=2024-13-01", "from=2024-03-02&to=2024-03-01"} {
		rec := httptest.NewRecorder()
		h.Report(rec, httptest.NewRequest(http.MethodGet, "/reports?"+q, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHandlerSnapshot(t *testing.T) {
	q := &fakeEnqueuer{}
	h := &Handler{Scheduler: &Scheduler{Client: q}}
	req := httptest.NewRequest(http.MethodPost, "/snapshots?client=c1", nil)
	req = req.WithContext(common.WithUserID(context.Background(), "admin-7"))
	rec := httptest.NewRecorder()

	h.Snapshot(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, q.tasks, 1)
	var payload SnapshotPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &payload))
	require.Equal(t, "admin-7", payload.RequestedBy)

	h.Scheduler.Client = &fakeEnqueuer{err: asynq.ErrDuplicateTask}
	rec = httptest.NewRecorder()
	h.Snapshot(rec, httptest.NewRequest(http.MethodPost, "/snapshots", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	(&Handler{}).Snapshot(rec, httptest.NewRequest(http.MethodPost, "/snapshots", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
