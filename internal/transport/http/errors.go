package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
)

const (
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidID            = "invalid_id"
	codeInvalidQuantity      = "invalid_quantity"
	codeInvalidAmount        = "invalid_amount"
	codeInvalidStock         = "invalid_stock"
	codeEmailRequired        = "email_required"
	codeHolderRequired       = "holder_id_required"
	codeProductNameRequired  = "product_name_required"
	codeInsufficientCapacity = "insufficient_capacity"
	codeProductNotFound      = "product_not_found"
	codeHoldNotFound         = "hold_not_found"
	codeInvalidTransition    = "invalid_transition"
	codeNumberGeneration     = "hold_number_generation_failed"
	codeForbidden            = "forbidden"
	codeUnavailable          = "temporarily_unavailable"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps service errors onto HTTP status codes. Capacity
// rejections carry the requested and available quantities so callers can
// adjust without a second round trip.
func writeDomainError(w http.ResponseWriter, err error) {
	var capErr *domain.InsufficientCapacityError
	if errors.As(err, &capErr) {
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Error:     capErr.Error(),
			Code:      codeInsufficientCapacity,
			Requested: capErr.Requested,
			Available: capErr.Available,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
	case errors.Is(err, domain.ErrInvalidStock):
		writeError(w, http.StatusBadRequest, codeInvalidStock, err.Error())
	case errors.Is(err, domain.ErrEmailRequired):
		writeError(w, http.StatusBadRequest, codeEmailRequired, err.Error())
	case errors.Is(err, domain.ErrHolderRequired):
		writeError(w, http.StatusBadRequest, codeHolderRequired, err.Error())
	case errors.Is(err, domain.ErrProductNameRequired):
		writeError(w, http.StatusBadRequest, codeProductNameRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
	case errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientCapacity):
		writeError(w, http.StatusConflict, codeInsufficientCapacity, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrNumberGeneration):
		writeError(w, http.StatusInternalServerError, codeNumberGeneration, err.Error())
	case errors.Is(err, domain.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "temporarily unavailable, retry")
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
