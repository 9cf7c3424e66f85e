package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/app"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
)

// StockHoldService is the surface of the stock reservation service the
// handlers depend on.
type StockHoldService interface {
	Reserve(ctx context.Context, in app.ReserveInput) (domain.StockHold, error)
	Available(ctx context.Context, productID string) (int, error)
	Release(ctx context.Context, holdID string) error
	Confirm(ctx context.Context, holdID string) error
	ReleaseAllFor(ctx context.Context, productID, holderID string) (int, error)
	Get(ctx context.Context, holdID string) (domain.StockHold, error)
	ListActiveForProduct(ctx context.Context, productID string) ([]domain.StockHold, error)
	ListActiveForHolder(ctx context.Context, holderID string) ([]domain.StockHold, error)
}

type stockHoldResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	HolderID  string    `json:"holder_id"`
	Quantity  int       `json:"quantity"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toStockHoldResponse(h domain.StockHold) stockHoldResponse {
	return stockHoldResponse{
		ID:        h.ID,
		ProductID: h.ProductID,
		HolderID:  h.HolderID,
		Quantity:  h.Quantity,
		State:     string(h.State),
		CreatedAt: h.CreatedAt,
		ExpiresAt: h.ExpiresAt,
	}
}

type createStockHoldRequest struct {
	ProductID string `json:"product_id"`
	HolderID  string `json:"holder_id"`
	Quantity  int    `json:"quantity"`
}

// HandleCreateStockHold reserves stock for a holder.
func HandleCreateStockHold(svc StockHoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createStockHoldRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.ProductID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "product_id is required")
			return
		}

		hold, err := svc.Reserve(r.Context(), app.ReserveInput{
			ProductID: req.ProductID,
			HolderID:  req.HolderID,
			Quantity:  req.Quantity,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toStockHoldResponse(hold))
	}
}

// HandleGetStockHold returns a single hold in any state.
func HandleGetStockHold(svc StockHoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hold, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toStockHoldResponse(hold))
	}
}

// HandleListStockHolds lists active holds filtered by product or holder.
// Exactly one filter must be supplied.
func HandleListStockHolds(svc StockHoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := r.URL.Query().Get("product_id")
		holderID := r.URL.Query().Get("holder_id")
		if (productID == "") == (holderID == "") {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "exactly one of product_id or holder_id is required")
			return
		}

		var (
			holds []domain.StockHold
			err   error
		)
		if productID != "" {
			holds, err = svc.ListActiveForProduct(r.Context(), productID)
		} else {
			holds, err = svc.ListActiveForHolder(r.Context(), holderID)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]stockHoldResponse, 0, len(holds))
		for _, h := range holds {
			resp = append(resp, toStockHoldResponse(h))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleProductAvailability reports how many units are free to reserve,
// total stock minus the sum of active unexpired holds.
func HandleProductAvailability(svc StockHoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		available, err := svc.Available(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"product_id": id,
			"available":  available,
		})
	}
}

// HandleReleaseStockHold moves an active hold to released.
func HandleReleaseStockHold(svc StockHoldService) http.HandlerFunc {
	return stockTransitionHandler(func(ctx context.Context, holdID string) error {
		return svc.Release(ctx, holdID)
	}, domain.HoldStateReleased)
}

// HandleConfirmStockHold moves an active hold to confirmed.
func HandleConfirmStockHold(svc StockHoldService) http.HandlerFunc {
	return stockTransitionHandler(func(ctx context.Context, holdID string) error {
		return svc.Confirm(ctx, holdID)
	}, domain.HoldStateConfirmed)
}

func stockTransitionHandler(apply func(context.Context, string) error, to domain.HoldState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := apply(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"id":    id,
			"state": string(to),
		})
	}
}

type bulkReleaseRequest struct {
	ProductID string `json:"product_id"`
	HolderID  string `json:"holder_id"`
}

// HandleBulkReleaseStockHolds releases every active hold a holder has on a
// product, for example when a cart is abandoned.
func HandleBulkReleaseStockHolds(svc StockHoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkReleaseRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.ProductID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "product_id is required")
			return
		}

		released, err := svc.ReleaseAllFor(r.Context(), req.ProductID, req.HolderID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"released": released})
	}
}
