package quote

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/tripod-pricing/internal/common"
	"github.com/noah-isme/tripod-pricing/internal/coupon"
	"github.com/noah-isme/tripod-pricing/internal/pricing"
	"github.com/noah-isme/tripod-pricing/internal/vendorcost"
)

// Handler exposes quote endpoints.
type Handler struct {
	Svc *Service
}

type quotePayload struct {
	ServiceID  string          `json:"service_id" validate:"required_without=BundleID,omitempty,uuid"`
	BundleID   string          `json:"bundle_id" validate:"omitempty,uuid"`
	ClientID   string          `json:"client_id" validate:"omitempty,uuid"`
	AssigneeID string          `json:"assignee_id" validate:"omitempty,uuid"`
	CouponCode string          `json:"coupon_code" validate:"omitempty,max=64"`
	FormData   json.RawMessage `json:"form_data"`
}

// Create prices a draft request.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "QUOTE_NOT_CONFIGURED", "quote service not configured", nil)
		return
	}
	var payload quotePayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	form, err := pricing.DecodeFormData(payload.FormData)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "form_data must be an object", nil)
		return
	}
	principal, _ := common.PrincipalFrom(r.Context())
	clientID := payload.ClientID
	if isClient(principal) {
		// clients always quote for themselves
		clientID = principal.ID
	}
	price, err := h.Svc.Quote(r.Context(), Draft{
		ServiceID:  payload.ServiceID,
		BundleID:   payload.BundleID,
		ClientID:   clientID,
		AssigneeID: payload.AssigneeID,
		CouponCode: payload.CouponCode,
		FormData:   form,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if !canSeeCost(principal) {
		common.Data(w, http.StatusOK, price.Redact())
		return
	}
	common.Data(w, http.StatusOK, price)
}

// RequestPrice resolves the price of a stored ad-hoc request.
func (h *Handler) RequestPrice(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "QUOTE_NOT_CONFIGURED", "quote service not configured", nil)
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	price, req, err := h.Svc.RequestPrice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.respondStored(w, r, price, req.ClientID)
}

// BundleRequestPrice resolves the price of a stored bundle request.
func (h *Handler) BundleRequestPrice(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "QUOTE_NOT_CONFIGURED", "quote service not configured", nil)
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	price, req, err := h.Svc.BundleRequestPrice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.respondStored(w, r, price, req.ClientID)
}

func (h *Handler) respondStored(w http.ResponseWriter, r *http.Request, price ResolvedPrice, ownerID string) {
	principal, _ := common.PrincipalFrom(r.Context())
	if isClient(principal) && principal.ID != ownerID {
		common.WriteError(w, common.NotFound("request", nil))
		return
	}
	if !canSeeCost(principal) {
		common.Data(w, http.StatusOK, price.Redact())
		return
	}
	common.Data(w, http.StatusOK, price)
}

func pathUUID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		common.WriteError(w, common.BadRequest(errors.New("invalid id")))
		return "", false
	}
	return id.String(), true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case coupon.IsRejection(err):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_REJECTED", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "QUOTE_ERROR", "failed to resolve price", nil)
	}
}

func isClient(p common.Principal) bool {
	return strings.EqualFold(p.Role, string(vendorcost.RoleClient))
}

// canSeeCost limits vendor cost and profit to in-house staff.
func canSeeCost(p common.Principal) bool {
	switch vendorcost.Role(strings.ToLower(p.Role)) {
	case vendorcost.RoleAdmin, vendorcost.RoleStaff:
		return true
	default:
		return false
	}
}
