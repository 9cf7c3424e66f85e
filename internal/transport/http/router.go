package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Stock       StockHoldService
	Checkout    CheckoutHoldService
	Catalog     CatalogService
	Logger      zerolog.Logger
	CORSOrigins []string
	// Registry serves /metrics when set.
	Registry *prometheus.Registry
}

// NewRouter wires all handlers onto a chi router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(cfg.Logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(func(next http.Handler) http.Handler {
			return CORS(cfg.CORSOrigins, next)
		})
	}
	r.NotFound(NotFoundHandler().ServeHTTP)

	r.Get("/health", HealthHandler)
	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/stock-holds", func(r chi.Router) {
		r.Post("/", HandleCreateStockHold(cfg.Stock))
		r.Get("/", HandleListStockHolds(cfg.Stock))
		r.Post("/release", HandleBulkReleaseStockHolds(cfg.Stock))
		r.Get("/{id}", HandleGetStockHold(cfg.Stock))
		r.Post("/{id}/release", HandleReleaseStockHold(cfg.Stock))
		r.Post("/{id}/confirm", HandleConfirmStockHold(cfg.Stock))
	})

	r.Route("/checkout-holds", func(r chi.Router) {
		r.Post("/", HandleCreateCheckoutHold(cfg.Checkout))
		r.Get("/", HandleListCheckoutHolds(cfg.Checkout))
		r.Get("/{number}", HandleGetCheckoutHold(cfg.Checkout))
		r.Post("/{number}/confirm", HandleConfirmCheckoutHold(cfg.Checkout))
		r.Post("/{number}/cancel", HandleCancelCheckoutHold(cfg.Checkout))
	})

	r.Route("/products", func(r chi.Router) {
		r.Post("/", HandleCreateProduct(cfg.Catalog))
		r.Get("/", HandleListProducts(cfg.Catalog))
		r.Get("/{id}", HandleGetProduct(cfg.Catalog))
		r.Put("/{id}/stock", HandleSetStock(cfg.Catalog))
		r.Get("/{id}/availability", HandleProductAvailability(cfg.Stock))
	})

	return r
}
