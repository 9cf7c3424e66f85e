package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/app"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/clock"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/config"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/metrics"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/storage/postgres"
	transporthttp "github.com/avkrapivin/ecommerce-microservices-sub001/internal/transport/http"
	"github.com/avkrapivin/ecommerce-microservices-sub001/migrations"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg := config.Load(logger)
	logger = logger.Level(cfg.LogLevel)

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal().Err(err).Msg("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	clk := clock.NewSystem()

	stockRepo := postgres.NewStockHoldRepository(pool)
	stockSvc := app.NewStockService(stockRepo, clk, logger,
		app.WithStockHoldTTL(cfg.StockHoldTTL),
		app.WithStockMetrics(m),
	)

	checkoutRepo := postgres.NewCheckoutRepository(pool)
	checkoutSvc := app.NewCheckoutService(checkoutRepo, clk, logger,
		app.WithCheckoutHoldTTL(cfg.CheckoutHoldTTL),
		app.WithCheckoutMetrics(m),
	)

	catalogSvc := app.NewCatalogService(postgres.NewCatalogRepository(pool))

	reaper := app.NewExpiryReaper(stockRepo, checkoutRepo, clk, logger,
		app.WithReapInterval(cfg.ReapInterval),
		app.WithReaperMetrics(m),
	)

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go reaper.Run(reaperCtx)

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Stock:       stockSvc,
		Checkout:    checkoutSvc,
		Catalog:     catalogSvc,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		Registry:    registry,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	logger.Info().Str("port", cfg.Port).Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-stopCtx.Done():
		logger.Info().Msg("shutdown signal received, stopping server")
	}

	stopReaper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("server stopped")
}
