package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/clock"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/metrics"
)

// HoldExpirer bulk-transitions overdue active holds to expired and returns
// the number of rows affected.
type HoldExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// ExpiryReaper periodically sweeps both hold kinds. Sweeps never propagate
// errors to request paths; failures are logged and retried on the next tick.
type ExpiryReaper struct {
	stock    HoldExpirer
	checkout HoldExpirer
	clock    clock.Clock
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
}

const defaultReapInterval = 5 * time.Minute

func NewExpiryReaper(stock, checkout HoldExpirer, clk clock.Clock, logger zerolog.Logger, opts ...ReaperOption) *ExpiryReaper {
	r := &ExpiryReaper{
		stock:    stock,
		checkout: checkout,
		clock:    clk,
		logger:   logger,
		interval: defaultReapInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type ReaperOption func(*ExpiryReaper)

// WithReapInterval overrides the default sweep period.
func WithReapInterval(d time.Duration) ReaperOption {
	return func(r *ExpiryReaper) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithReaperMetrics attaches Prometheus collectors.
func WithReaperMetrics(m *metrics.Metrics) ReaperOption {
	return func(r *ExpiryReaper) {
		r.metrics = m
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (r *ExpiryReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("expiry reaper started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("expiry reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep expires overdue holds of both kinds. Each kind is one conditional
// store-side update, so a concurrent confirm/release/cancel and the sweep
// race safely: whichever commits first wins.
func (r *ExpiryReaper) Sweep(ctx context.Context) {
	start := time.Now()
	now := r.clock.Now()

	expiredStock, err := r.stock.ExpireOverdue(ctx, now)
	if err != nil {
		r.logger.Error().Err(err).Msg("stock hold sweep failed")
	} else {
		r.metrics.HoldsExpired(string(domain.KindStock), expiredStock)
	}

	expiredCheckout, err := r.checkout.ExpireOverdue(ctx, now)
	if err != nil {
		r.logger.Error().Err(err).Msg("checkout hold sweep failed")
	} else {
		r.metrics.HoldsExpired(string(domain.KindCheckout), expiredCheckout)
	}

	r.metrics.SweepObserved(time.Since(start).Seconds())
	if expiredStock > 0 || expiredCheckout > 0 {
		r.logger.Info().
			Int64("stock_expired", expiredStock).
			Int64("checkout_expired", expiredCheckout).
			Msg("expired overdue holds")
	}
}
