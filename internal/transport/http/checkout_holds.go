package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/app"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
)

// CheckoutHoldService is the surface of the checkout hold service the
// handlers depend on.
type CheckoutHoldService interface {
	Create(ctx context.Context, in app.CreateCheckoutInput) (domain.CheckoutHold, error)
	Confirm(ctx context.Context, holdNumber string) (domain.CheckoutHold, error)
	Cancel(ctx context.Context, holdNumber string) (domain.CheckoutHold, error)
	FindByNumber(ctx context.Context, holdNumber string) (domain.CheckoutHold, error)
	FindActiveByEmail(ctx context.Context, email string) ([]domain.CheckoutHold, error)
	FindAllByEmail(ctx context.Context, email string) ([]domain.CheckoutHold, error)
}

type checkoutHoldResponse struct {
	ID          string          `json:"id"`
	HoldNumber  string          `json:"hold_number"`
	Email       string          `json:"email"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	State       string          `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

func toCheckoutHoldResponse(h domain.CheckoutHold) checkoutHoldResponse {
	return checkoutHoldResponse{
		ID:          h.ID,
		HoldNumber:  h.HoldNumber,
		Email:       h.Email,
		TotalAmount: h.TotalAmount,
		State:       string(h.State),
		CreatedAt:   h.CreatedAt,
		ExpiresAt:   h.ExpiresAt,
	}
}

type createCheckoutHoldRequest struct {
	Email       string          `json:"email"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// HandleCreateCheckoutHold opens a checkout hold and mints its hold number.
func HandleCreateCheckoutHold(svc CheckoutHoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCheckoutHoldRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		hold, err := svc.Create(r.Context(), app.CreateCheckoutInput{
			Email:       req.Email,
			TotalAmount: req.TotalAmount,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toCheckoutHoldResponse(hold))
	}
}

// HandleGetCheckoutHold looks a hold up by its hold number.
func HandleGetCheckoutHold(svc CheckoutHoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hold, err := svc.FindByNumber(r.Context(), chi.URLParam(r, "number"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCheckoutHoldResponse(hold))
	}
}

// HandleListCheckoutHolds lists a customer's holds by email. With
// active=true only holds that still reserve capacity are returned.
func HandleListCheckoutHolds(svc CheckoutHoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		if email == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "email is required")
			return
		}

		var (
			holds []domain.CheckoutHold
			err   error
		)
		if r.URL.Query().Get("active") == "true" {
			holds, err = svc.FindActiveByEmail(r.Context(), email)
		} else {
			holds, err = svc.FindAllByEmail(r.Context(), email)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]checkoutHoldResponse, 0, len(holds))
		for _, h := range holds {
			resp = append(resp, toCheckoutHoldResponse(h))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleConfirmCheckoutHold confirms an active hold by number.
func HandleConfirmCheckoutHold(svc CheckoutHoldService) http.HandlerFunc {
	return checkoutTransitionHandler(func(ctx context.Context, number string) (domain.CheckoutHold, error) {
		return svc.Confirm(ctx, number)
	})
}

// HandleCancelCheckoutHold cancels an active hold by number.
func HandleCancelCheckoutHold(svc CheckoutHoldService) http.HandlerFunc {
	return checkoutTransitionHandler(func(ctx context.Context, number string) (domain.CheckoutHold, error) {
		return svc.Cancel(ctx, number)
	})
}

func checkoutTransitionHandler(apply func(context.Context, string) (domain.CheckoutHold, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hold, err := apply(r.Context(), chi.URLParam(r, "number"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCheckoutHoldResponse(hold))
	}
}
