package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/app"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
)

// CatalogService is the surface of the product catalog the handlers
// depend on.
type CatalogService interface {
	CreateProduct(ctx context.Context, in app.CreateProductInput) (domain.Product, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	SetStock(ctx context.Context, productID string, stockQuantity int) error
}

type productResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StockQuantity int    `json:"stock_quantity"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{ID: p.ID, Name: p.Name, StockQuantity: p.StockQuantity}
}

type createProductRequest struct {
	Name          string `json:"name"`
	StockQuantity int    `json:"stock_quantity"`
}

// HandleCreateProduct registers a product with its initial stock level.
func HandleCreateProduct(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		product, err := svc.CreateProduct(r.Context(), app.CreateProductInput{
			Name:          req.Name,
			StockQuantity: req.StockQuantity,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toProductResponse(product))
	}
}

// HandleGetProduct returns a product by ID.
func HandleGetProduct(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProductResponse(product))
	}
}

// HandleListProducts returns the full catalog.
func HandleListProducts(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.ListProducts(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]productResponse, 0, len(products))
		for _, p := range products {
			resp = append(resp, toProductResponse(p))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type setStockRequest struct {
	StockQuantity int `json:"stock_quantity"`
}

// HandleSetStock replaces a product's total stock level.
func HandleSetStock(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setStockRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		id := chi.URLParam(r, "id")
		if err := svc.SetStock(r.Context(), id, req.StockQuantity); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":             id,
			"stock_quantity": req.StockQuantity,
		})
	}
}
