package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/clock"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/metrics"
)

type StockHoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error)
	SumActiveHolds(ctx context.Context, productID string, now time.Time) (int, error)
	CreateHold(ctx context.Context, hold domain.StockHold) error
	GetHold(ctx context.Context, holdID string) (domain.StockHold, error)
	// UpdateHoldState flips the hold from the expected state to the target
	// state and reports whether a row actually changed.
	UpdateHoldState(ctx context.Context, holdID string, from, to domain.HoldState) (bool, error)
	ReleaseAllFor(ctx context.Context, productID, holderID string) (int, error)
	ListActiveForProduct(ctx context.Context, productID string, now time.Time) ([]domain.StockHold, error)
	ListActiveForHolder(ctx context.Context, holderID string, now time.Time) ([]domain.StockHold, error)
}

// StockService creates, releases and confirms per-product stock holds while
// preserving the no-oversell invariant.
type StockService struct {
	repo    StockHoldRepository
	clock   clock.Clock
	logger  zerolog.Logger
	metrics *metrics.Metrics
	holdTTL time.Duration
}

const defaultStockHoldTTL = 30 * time.Minute

func NewStockService(repo StockHoldRepository, clk clock.Clock, logger zerolog.Logger, opts ...StockServiceOption) *StockService {
	svc := &StockService{
		repo:    repo,
		clock:   clk,
		logger:  logger,
		holdTTL: defaultStockHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type StockServiceOption func(*StockService)

// WithStockHoldTTL overrides the default TTL for new holds.
func WithStockHoldTTL(d time.Duration) StockServiceOption {
	return func(s *StockService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithStockMetrics attaches Prometheus collectors.
func WithStockMetrics(m *metrics.Metrics) StockServiceOption {
	return func(s *StockService) {
		s.metrics = m
	}
}

type ReserveInput struct {
	ProductID string
	HolderID  string
	Quantity  int
}

// Reserve checks availability and inserts an active hold in one transaction.
// The product row is locked for the duration of the check-and-insert so two
// concurrent reservations cannot jointly oversell.
func (s *StockService) Reserve(ctx context.Context, in ReserveInput) (domain.StockHold, error) {
	if in.Quantity < 1 {
		return domain.StockHold{}, domain.ErrInvalidQuantity
	}
	if in.HolderID == "" {
		return domain.StockHold{}, domain.ErrHolderRequired
	}

	now := s.clock.Now()
	var result domain.StockHold

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		product, err := s.repo.GetProductForUpdate(txCtx, in.ProductID)
		if err != nil {
			return err
		}

		activeQty, err := s.repo.SumActiveHolds(txCtx, in.ProductID, now)
		if err != nil {
			return err
		}

		available := product.StockQuantity - activeQty
		if in.Quantity > available {
			return &domain.InsufficientCapacityError{
				ProductID: in.ProductID,
				Requested: in.Quantity,
				Available: available,
			}
		}

		hold := domain.StockHold{
			ID:        newID(),
			ProductID: in.ProductID,
			HolderID:  in.HolderID,
			Quantity:  in.Quantity,
			State:     domain.HoldStateActive,
			CreatedAt: now,
			ExpiresAt: now.Add(s.holdTTL),
		}

		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			return err
		}

		result = hold
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCapacity) {
			s.metrics.CapacityRejected()
		}
		return domain.StockHold{}, err
	}

	s.metrics.HoldCreated(string(domain.KindStock))
	s.logger.Debug().
		Str("hold_id", result.ID).
		Str("product_id", in.ProductID).
		Str("holder_id", in.HolderID).
		Int("quantity", in.Quantity).
		Msg("stock hold created")
	return result, nil
}

// Available returns capacity minus the sum of currently active holds. The
// capacity read and the hold sum share one transactional snapshot.
func (s *StockService) Available(ctx context.Context, productID string) (int, error) {
	now := s.clock.Now()
	var available int
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		product, err := s.repo.GetProduct(txCtx, productID)
		if err != nil {
			return err
		}
		activeQty, err := s.repo.SumActiveHolds(txCtx, productID, now)
		if err != nil {
			return err
		}
		available = product.StockQuantity - activeQty
		return nil
	})
	if err != nil {
		return 0, err
	}
	return available, nil
}

// Release moves an active hold to released, returning its quantity to the
// pool. Releasing a hold that already reached a terminal state fails with
// ErrInvalidTransition and never double-frees capacity.
func (s *StockService) Release(ctx context.Context, holdID string) error {
	return s.transition(ctx, holdID, domain.HoldStateReleased, false)
}

// Confirm converts an active hold into a permanent allocation. Confirmed
// holds stop counting toward availability but are retained for audit.
// Confirming a hold past its TTL is a hard failure even before the reaper
// sweeps it: its units were already returned to the pool.
func (s *StockService) Confirm(ctx context.Context, holdID string) error {
	return s.transition(ctx, holdID, domain.HoldStateConfirmed, true)
}

func (s *StockService) transition(ctx context.Context, holdID string, to domain.HoldState, checkExpiry bool) error {
	now := s.clock.Now()
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHold(txCtx, holdID)
		if err != nil {
			return err
		}
		if err := domain.Transition(domain.KindStock, hold.State, to); err != nil {
			return err
		}
		// An overdue hold no longer counts toward availability; confirming
		// it would commit the same units twice.
		if checkExpiry && !hold.ExpiresAt.After(now) {
			return domain.ErrInvalidTransition
		}

		updated, err := s.repo.UpdateHoldState(txCtx, holdID, domain.HoldStateActive, to)
		if err != nil {
			return err
		}
		if !updated {
			// The hold moved between the read and the update, e.g. the
			// reaper won the race.
			return domain.ErrInvalidTransition
		}
		return nil
	})
}

// ReleaseAllFor bulk-releases every active hold for the product/holder pair,
// used when an order is cancelled. Zero matches is not an error.
func (s *StockService) ReleaseAllFor(ctx context.Context, productID, holderID string) (int, error) {
	var count int
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		n, err := s.repo.ReleaseAllFor(txCtx, productID, holderID)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Debug().
			Str("product_id", productID).
			Str("holder_id", holderID).
			Int("released", count).
			Msg("released stock holds for holder")
	}
	return count, nil
}

// Get looks a hold up by id, including holds in terminal states.
func (s *StockService) Get(ctx context.Context, holdID string) (domain.StockHold, error) {
	return s.repo.GetHold(ctx, holdID)
}

func (s *StockService) ListActiveForProduct(ctx context.Context, productID string) ([]domain.StockHold, error) {
	return s.repo.ListActiveForProduct(ctx, productID, s.clock.Now())
}

func (s *StockService) ListActiveForHolder(ctx context.Context, holderID string) ([]domain.StockHold, error) {
	return s.repo.ListActiveForHolder(ctx, holderID, s.clock.Now())
}
