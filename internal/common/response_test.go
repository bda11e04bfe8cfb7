package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteErrorUsesAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, NotFound("request", errors.New("no rows")))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "NOT_FOUND", body["error"].Code)
	require.Equal(t, "request not found", body["error"].Message)
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "connection refused")
}

func TestDataEnvelopeOmitsPagination(t *testing.T) {
	rec := httptest.NewRecorder()
	Data(rec, http.StatusOK, map[string]string{"final_price": "81.80"})

	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":{"final_price":"81.80"}}`, rec.Body.String())
}

func TestPaginationBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reports?page=2&limit=2", nil)
	p := ParsePagination(req, 50)
	start, end := p.Bounds(3)
	require.Equal(t, 2, start)
	require.Equal(t, 3, end)
	require.Equal(t, 3, p.TotalItems)

	p = Pagination{Page: 9, PerPage: 10}
	start, end = p.Bounds(3)
	require.Equal(t, start, end)

	req = httptest.NewRequest(http.MethodGet, "/reports?limit=100000&page=-1", nil)
	p = ParsePagination(req, 50)
	require.Equal(t, MaxPerPage, p.PerPage)
	require.Equal(t, 1, p.Page)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.8:5123"
	require.Equal(t, "10.0.0.8", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.4")
	require.Equal(t, "198.51.100.4", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	require.Equal(t, "203.0.113.9", ClientIP(req))
}

func TestFingerprintIsOrderSensitive(t *testing.T) {
	a := Fingerprint("v=v1", "s=svc")
	require.Len(t, a, 64)
	require.Equal(t, a, Fingerprint("v=v1", "s=svc"))
	require.NotEqual(t, a, Fingerprint("s=svc", "v=v1"))
}
