package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/app"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
)

type stubStockService struct {
	reserve       func(ctx context.Context, in app.ReserveInput) (domain.StockHold, error)
	available     func(ctx context.Context, productID string) (int, error)
	release       func(ctx context.Context, holdID string) error
	confirm       func(ctx context.Context, holdID string) error
	releaseAllFor func(ctx context.Context, productID, holderID string) (int, error)
	get           func(ctx context.Context, holdID string) (domain.StockHold, error)
	listProduct   func(ctx context.Context, productID string) ([]domain.StockHold, error)
	listHolder    func(ctx context.Context, holderID string) ([]domain.StockHold, error)
}

func (s *stubStockService) Reserve(ctx context.Context, in app.ReserveInput) (domain.StockHold, error) {
	return s.reserve(ctx, in)
}

func (s *stubStockService) Available(ctx context.Context, productID string) (int, error) {
	return s.available(ctx, productID)
}

func (s *stubStockService) Release(ctx context.Context, holdID string) error {
	return s.release(ctx, holdID)
}

func (s *stubStockService) Confirm(ctx context.Context, holdID string) error {
	return s.confirm(ctx, holdID)
}

func (s *stubStockService) ReleaseAllFor(ctx context.Context, productID, holderID string) (int, error) {
	return s.releaseAllFor(ctx, productID, holderID)
}

func (s *stubStockService) Get(ctx context.Context, holdID string) (domain.StockHold, error) {
	return s.get(ctx, holdID)
}

func (s *stubStockService) ListActiveForProduct(ctx context.Context, productID string) ([]domain.StockHold, error) {
	return s.listProduct(ctx, productID)
}

func (s *stubStockService) ListActiveForHolder(ctx context.Context, holderID string) ([]domain.StockHold, error) {
	return s.listHolder(ctx, holderID)
}

func testRouter(stock StockHoldService, checkout CheckoutHoldService, catalog CatalogService) http.Handler {
	return NewRouter(RouterConfig{
		Stock:    stock,
		Checkout: checkout,
		Catalog:  catalog,
		Logger:   zerolog.Nop(),
	})
}

func sampleStockHold() domain.StockHold {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.StockHold{
		ID:        "11111111-1111-1111-1111-111111111111",
		ProductID: "22222222-2222-2222-2222-222222222222",
		HolderID:  "session-1",
		Quantity:  2,
		State:     domain.HoldStateActive,
		CreatedAt: now,
		ExpiresAt: now.Add(30 * time.Minute),
	}
}

func TestHandleCreateStockHold(t *testing.T) {
	hold := sampleStockHold()

	tests := []struct {
		name       string
		body       string
		reserveErr error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "success",
			body:       `{"product_id":"p1","holder_id":"session-1","quantity":2}`,
			wantStatus: http.StatusCreated,
			wantBody:   `"state":"active"`,
		},
		{
			name:       "malformed body",
			body:       `{"product_id":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid_request_body",
		},
		{
			name:       "unknown field",
			body:       `{"product_id":"p1","qty":2}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid_request_body",
		},
		{
			name:       "missing product id",
			body:       `{"holder_id":"session-1","quantity":2}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "missing_required_field",
		},
		{
			name:       "invalid quantity",
			body:       `{"product_id":"p1","holder_id":"session-1","quantity":0}`,
			reserveErr: domain.ErrInvalidQuantity,
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid_quantity",
		},
		{
			name:       "missing holder",
			body:       `{"product_id":"p1","quantity":2}`,
			reserveErr: domain.ErrHolderRequired,
			wantStatus: http.StatusBadRequest,
			wantBody:   "holder_id_required",
		},
		{
			name:       "product not found",
			body:       `{"product_id":"p1","holder_id":"session-1","quantity":2}`,
			reserveErr: domain.ErrProductNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   "product_not_found",
		},
		{
			name:       "insufficient capacity",
			body:       `{"product_id":"p1","holder_id":"session-1","quantity":5}`,
			reserveErr: &domain.InsufficientCapacityError{ProductID: "p1", Requested: 5, Available: 3},
			wantStatus: http.StatusConflict,
			wantBody:   `"available":3`,
		},
		{
			name:       "transient failure",
			body:       `{"product_id":"p1","holder_id":"session-1","quantity":2}`,
			reserveErr: domain.ErrTransient,
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "temporarily_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stock := &stubStockService{
				reserve: func(ctx context.Context, in app.ReserveInput) (domain.StockHold, error) {
					if tt.reserveErr != nil {
						return domain.StockHold{}, tt.reserveErr
					}
					return hold, nil
				},
			}
			router := testRouter(stock, nil, nil)

			req := httptest.NewRequest(http.MethodPost, "/stock-holds", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandleGetStockHold(t *testing.T) {
	hold := sampleStockHold()
	stock := &stubStockService{
		get: func(ctx context.Context, holdID string) (domain.StockHold, error) {
			if holdID != hold.ID {
				return domain.StockHold{}, domain.ErrHoldNotFound
			}
			return hold, nil
		},
	}
	router := testRouter(stock, nil, nil)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock-holds/"+hold.ID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), hold.HolderID) {
			t.Fatalf("body %q missing holder", rec.Body.String())
		}
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock-holds/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandleListStockHolds(t *testing.T) {
	hold := sampleStockHold()
	var gotProduct, gotHolder string
	stock := &stubStockService{
		listProduct: func(ctx context.Context, productID string) ([]domain.StockHold, error) {
			gotProduct = productID
			return []domain.StockHold{hold}, nil
		},
		listHolder: func(ctx context.Context, holderID string) ([]domain.StockHold, error) {
			gotHolder = holderID
			return nil, nil
		},
	}
	router := testRouter(stock, nil, nil)

	t.Run("by product", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock-holds?product_id=p1", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotProduct != "p1" {
			t.Fatalf("product filter = %q, want p1", gotProduct)
		}
	})

	t.Run("by holder empty result", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock-holds?holder_id=h1", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotHolder != "h1" {
			t.Fatalf("holder filter = %q, want h1", gotHolder)
		}
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Fatalf("body = %q, want empty array", rec.Body.String())
		}
	})

	t.Run("no filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock-holds", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("both filters", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock-holds?product_id=p1&holder_id=h1", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleStockHoldTransitions(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "release ok",
			path:       "/stock-holds/h1/release",
			wantStatus: http.StatusOK,
			wantBody:   `"state":"released"`,
		},
		{
			name:       "confirm ok",
			path:       "/stock-holds/h1/confirm",
			wantStatus: http.StatusOK,
			wantBody:   `"state":"confirmed"`,
		},
		{
			name:       "release missing hold",
			path:       "/stock-holds/h1/release",
			err:        domain.ErrHoldNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   "hold_not_found",
		},
		{
			name:       "confirm already released",
			path:       "/stock-holds/h1/confirm",
			err:        domain.ErrInvalidTransition,
			wantStatus: http.StatusConflict,
			wantBody:   "invalid_transition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stock := &stubStockService{
				release: func(ctx context.Context, holdID string) error { return tt.err },
				confirm: func(ctx context.Context, holdID string) error { return tt.err },
			}
			router := testRouter(stock, nil, nil)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandleBulkReleaseStockHolds(t *testing.T) {
	stock := &stubStockService{
		releaseAllFor: func(ctx context.Context, productID, holderID string) (int, error) {
			if productID == "p1" && holderID == "cart-9" {
				return 3, nil
			}
			return 0, nil
		},
	}
	router := testRouter(stock, nil, nil)

	t.Run("releases all", func(t *testing.T) {
		body := strings.NewReader(`{"product_id":"p1","holder_id":"cart-9"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stock-holds/release", body))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"released":3`) {
			t.Fatalf("body = %q, want released count", rec.Body.String())
		}
	})

	t.Run("missing product id", func(t *testing.T) {
		body := strings.NewReader(`{"holder_id":"cart-9"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stock-holds/release", body))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleProductAvailability(t *testing.T) {
	stock := &stubStockService{
		available: func(ctx context.Context, productID string) (int, error) {
			if productID == "missing" {
				return 0, domain.ErrProductNotFound
			}
			return 7, nil
		},
	}
	router := testRouter(stock, nil, nil)

	t.Run("reports remaining units", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/p1/availability", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"available":7`) {
			t.Fatalf("body = %q", rec.Body.String())
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/missing/availability", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestRouterNotFound(t *testing.T) {
	router := testRouter(&stubStockService{}, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not_found") {
		t.Fatalf("body = %q, want JSON not_found", rec.Body.String())
	}
}
