package coupon

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tripod-pricing/internal/common"
	"github.com/noah-isme/tripod-pricing/internal/discount"
)

// Handler exposes administrative coupon endpoints.
type Handler struct {
	Svc *Service
}

type createPayload struct {
	Code           string          `json:"code" validate:"required,max=64"`
	Type           string          `json:"type" validate:"required,oneof=percentage fixed"`
	Value          decimal.Decimal `json:"value"`
	MinSpend       decimal.Decimal `json:"min_spend"`
	UsageLimit     *int32          `json:"usage_limit" validate:"omitempty,min=0"`
	PerClientLimit *int32          `json:"per_client_limit" validate:"omitempty,min=0"`
	ValidFrom      *time.Time      `json:"valid_from"`
	ValidTo        *time.Time      `json:"valid_to"`
	ServiceIDs     []string        `json:"service_ids" validate:"omitempty,dive,uuid"`
	BundleIDs      []string        `json:"bundle_ids" validate:"omitempty,dive,uuid"`
	Active         *bool           `json:"active"`
}

type previewPayload struct {
	Code      string          `json:"code" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	ClientID  string          `json:"client_id" validate:"omitempty,uuid"`
	ServiceID string          `json:"service_id" validate:"omitempty,uuid"`
	BundleID  string          `json:"bundle_id" validate:"omitempty,uuid"`
}

// Create inserts a new coupon.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var payload createPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	rule, err := h.Svc.Create(r.Context(), Rule{
		Code:           payload.Code,
		Type:           discount.CouponType(payload.Type),
		Value:          payload.Value,
		MinSpend:       payload.MinSpend,
		UsageLimit:     payload.UsageLimit,
		PerClientLimit: payload.PerClientLimit,
		ValidFrom:      payload.ValidFrom,
		ValidTo:        payload.ValidTo,
		ServiceIDs:     payload.ServiceIDs,
		BundleIDs:      payload.BundleIDs,
		Active:         active,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRule):
			common.WriteError(w, common.BadRequest(err))
		case errors.Is(err, ErrCodeTaken):
			common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		}
		return
	}
	common.Data(w, http.StatusCreated, rule)
}

// Preview returns the simulated coupon discount without recording usage.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var payload previewPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if payload.Amount.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "amount must not be negative", nil)
		return
	}
	result, err := h.Svc.Preview(r.Context(), Target{
		Code:      payload.Code,
		ClientID:  payload.ClientID,
		ServiceID: payload.ServiceID,
		BundleID:  payload.BundleID,
		Amount:    payload.Amount,
	})
	if err != nil {
		if IsRejection(err) {
			common.JSONError(w, http.StatusUnprocessableEntity, "NOT_ELIGIBLE", err.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to evaluate coupon", nil)
		return
	}
	common.Data(w, http.StatusOK, result)
}

// IsRejection reports whether err is a business rejection of the coupon as
// opposed to an infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrNotEligible, ErrUsageLimitReached, ErrPerClientLimitReached,
		ErrInactive, ErrExpired, ErrMinimumSpendUnmet,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
