package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/clock"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/metrics"
)

type CheckoutHoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateHold(ctx context.Context, hold domain.CheckoutHold) error
	GetByNumber(ctx context.Context, holdNumber string) (domain.CheckoutHold, error)
	GetByID(ctx context.Context, id string) (domain.CheckoutHold, error)
	ListByEmail(ctx context.Context, email string) ([]domain.CheckoutHold, error)
	ListActiveByEmail(ctx context.Context, email string, now time.Time) ([]domain.CheckoutHold, error)
	UpdateStateByNumber(ctx context.Context, holdNumber string, from, to domain.HoldState) (bool, error)
}

// CheckoutService manages order-level holds keyed by customer email and a
// shareable hold number.
type CheckoutService struct {
	repo    CheckoutHoldRepository
	clock   clock.Clock
	logger  zerolog.Logger
	metrics *metrics.Metrics
	holdTTL time.Duration
}

const defaultCheckoutHoldTTL = 15 * time.Minute

// Collisions on an 8-hex-char number are rare; a handful of retries is
// plenty before treating the generator as broken.
const maxNumberAttempts = 5

func NewCheckoutService(repo CheckoutHoldRepository, clk clock.Clock, logger zerolog.Logger, opts ...CheckoutServiceOption) *CheckoutService {
	svc := &CheckoutService{
		repo:    repo,
		clock:   clk,
		logger:  logger,
		holdTTL: defaultCheckoutHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CheckoutServiceOption func(*CheckoutService)

// WithCheckoutHoldTTL overrides the default TTL for new checkout holds.
func WithCheckoutHoldTTL(d time.Duration) CheckoutServiceOption {
	return func(s *CheckoutService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithCheckoutMetrics attaches Prometheus collectors.
func WithCheckoutMetrics(m *metrics.Metrics) CheckoutServiceOption {
	return func(s *CheckoutService) {
		s.metrics = m
	}
}

type CreateCheckoutInput struct {
	Email       string
	TotalAmount decimal.Decimal
}

// Create opens an active checkout hold with a freshly minted hold number,
// regenerating on collision a bounded number of times.
func (s *CheckoutService) Create(ctx context.Context, in CreateCheckoutInput) (domain.CheckoutHold, error) {
	if in.Email == "" {
		return domain.CheckoutHold{}, domain.ErrEmailRequired
	}
	if in.TotalAmount.IsNegative() {
		return domain.CheckoutHold{}, domain.ErrInvalidAmount
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		now := s.clock.Now()
		hold := domain.CheckoutHold{
			ID:          newID(),
			Email:       in.Email,
			HoldNumber:  newHoldNumber(),
			TotalAmount: in.TotalAmount,
			State:       domain.HoldStateActive,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.holdTTL),
		}

		err := s.repo.CreateHold(ctx, hold)
		if errors.Is(err, domain.ErrHoldNumberTaken) {
			continue
		}
		if err != nil {
			return domain.CheckoutHold{}, err
		}

		s.metrics.HoldCreated(string(domain.KindCheckout))
		s.logger.Info().
			Str("hold_number", hold.HoldNumber).
			Str("email", in.Email).
			Str("total_amount", in.TotalAmount.String()).
			Msg("checkout hold created")
		return hold, nil
	}

	s.logger.Error().
		Str("email", in.Email).
		Int("attempts", maxNumberAttempts).
		Msg("hold number generation exhausted retries")
	return domain.CheckoutHold{}, domain.ErrNumberGeneration
}

// Confirm finalizes an active hold after payment succeeds. Confirming a hold
// the reaper already expired is a hard failure: the caller lost the race and
// must restart checkout.
func (s *CheckoutService) Confirm(ctx context.Context, holdNumber string) (domain.CheckoutHold, error) {
	return s.transition(ctx, holdNumber, domain.HoldStateConfirmed, true)
}

// Cancel voids an active hold on explicit user action.
func (s *CheckoutService) Cancel(ctx context.Context, holdNumber string) (domain.CheckoutHold, error) {
	return s.transition(ctx, holdNumber, domain.HoldStateCancelled, false)
}

func (s *CheckoutService) transition(ctx context.Context, holdNumber string, to domain.HoldState, checkExpiry bool) (domain.CheckoutHold, error) {
	now := s.clock.Now()
	var result domain.CheckoutHold

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetByNumber(txCtx, holdNumber)
		if err != nil {
			return err
		}
		if err := domain.Transition(domain.KindCheckout, hold.State, to); err != nil {
			return err
		}
		// An overdue hold the reaper has not swept yet is treated as expired.
		if checkExpiry && !hold.ExpiresAt.After(now) {
			return domain.ErrInvalidTransition
		}

		updated, err := s.repo.UpdateStateByNumber(txCtx, holdNumber, domain.HoldStateActive, to)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrInvalidTransition
		}

		hold.State = to
		result = hold
		return nil
	})
	if err != nil {
		return domain.CheckoutHold{}, err
	}

	s.logger.Info().
		Str("hold_number", holdNumber).
		Str("state", string(to)).
		Msg("checkout hold transitioned")
	return result, nil
}

// FindByNumber looks a hold up by its shareable number.
func (s *CheckoutService) FindByNumber(ctx context.Context, holdNumber string) (domain.CheckoutHold, error) {
	return s.repo.GetByNumber(ctx, holdNumber)
}

// FindByID looks a hold up by its internal id.
func (s *CheckoutService) FindByID(ctx context.Context, id string) (domain.CheckoutHold, error) {
	return s.repo.GetByID(ctx, id)
}

// FindActiveByEmail lists a customer's in-flight checkout attempts. A
// customer may have several active holds at once.
func (s *CheckoutService) FindActiveByEmail(ctx context.Context, email string) ([]domain.CheckoutHold, error) {
	if email == "" {
		return nil, domain.ErrEmailRequired
	}
	return s.repo.ListActiveByEmail(ctx, email, s.clock.Now())
}

// FindAllByEmail lists every hold for a customer, terminal states included.
func (s *CheckoutService) FindAllByEmail(ctx context.Context, email string) ([]domain.CheckoutHold, error) {
	if email == "" {
		return nil, domain.ErrEmailRequired
	}
	return s.repo.ListByEmail(ctx, email)
}
