package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
)

type CheckoutRepository struct {
	pool *pgxpool.Pool
}

func NewCheckoutRepository(pool *pgxpool.Pool) *CheckoutRepository {
	return &CheckoutRepository{pool: pool}
}

func (r *CheckoutRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *CheckoutRepository) CreateHold(ctx context.Context, hold domain.CheckoutHold) error {
	const stmt = `
INSERT INTO checkout_holds (id, email, hold_number, total_amount, state, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.Email,
		hold.HoldNumber,
		hold.TotalAmount.String(),
		hold.State,
		hold.CreatedAt,
		hold.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrHoldNumberTaken
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create checkout hold: %w", err)
	}
	return nil
}

func (r *CheckoutRepository) GetByNumber(ctx context.Context, holdNumber string) (domain.CheckoutHold, error) {
	const query = `
SELECT id, email, hold_number, total_amount::text, state, created_at, expires_at
FROM checkout_holds
WHERE hold_number = $1`

	return r.scanHold(r.queryRow(ctx, query, holdNumber))
}

func (r *CheckoutRepository) GetByID(ctx context.Context, id string) (domain.CheckoutHold, error) {
	const query = `
SELECT id, email, hold_number, total_amount::text, state, created_at, expires_at
FROM checkout_holds
WHERE id = $1`

	return r.scanHold(r.queryRow(ctx, query, id))
}

func (r *CheckoutRepository) scanHold(row pgx.Row) (domain.CheckoutHold, error) {
	var h domain.CheckoutHold
	var state, amount string
	err := row.Scan(&h.ID, &h.Email, &h.HoldNumber, &amount, &state, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.CheckoutHold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.CheckoutHold{}, domain.ErrHoldNotFound
		}
		return domain.CheckoutHold{}, fmt.Errorf("get checkout hold: %w", err)
	}
	h.State = domain.HoldState(state)
	h.TotalAmount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.CheckoutHold{}, fmt.Errorf("parse total amount: %w", err)
	}
	return h, nil
}

func (r *CheckoutRepository) ListByEmail(ctx context.Context, email string) ([]domain.CheckoutHold, error) {
	const query = `
SELECT id, email, hold_number, total_amount::text, state, created_at, expires_at
FROM checkout_holds
WHERE email = $1
ORDER BY created_at ASC`

	return r.listHolds(ctx, query, email)
}

func (r *CheckoutRepository) ListActiveByEmail(ctx context.Context, email string, now time.Time) ([]domain.CheckoutHold, error) {
	const query = `
SELECT id, email, hold_number, total_amount::text, state, created_at, expires_at
FROM checkout_holds
WHERE email = $1 AND state = 'active' AND expires_at > $2
ORDER BY created_at ASC`

	return r.listHolds(ctx, query, email, now)
}

// UpdateStateByNumber is the compare-and-swap transition keyed by the
// shareable hold number.
func (r *CheckoutRepository) UpdateStateByNumber(ctx context.Context, holdNumber string, from, to domain.HoldState) (bool, error) {
	const stmt = `UPDATE checkout_holds SET state = $3 WHERE hold_number = $1 AND state = $2`

	tag, err := r.exec(ctx, stmt, holdNumber, from, to)
	if err != nil {
		return false, fmt.Errorf("update checkout hold state: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ExpireOverdue is the reaper's bulk transition for checkout holds.
func (r *CheckoutRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	const stmt = `
UPDATE checkout_holds
SET state = 'expired'
WHERE state = 'active' AND expires_at < $1`

	tag, err := r.exec(ctx, stmt, now)
	if err != nil {
		return 0, fmt.Errorf("expire checkout holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *CheckoutRepository) listHolds(ctx context.Context, query string, args ...any) ([]domain.CheckoutHold, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checkout holds: %w", err)
	}
	defer rows.Close()

	var holds []domain.CheckoutHold
	for rows.Next() {
		var h domain.CheckoutHold
		var state, amount string
		if err := rows.Scan(&h.ID, &h.Email, &h.HoldNumber, &amount, &state, &h.CreatedAt, &h.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan checkout hold: %w", err)
		}
		h.State = domain.HoldState(state)
		h.TotalAmount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse total amount: %w", err)
		}
		holds = append(holds, h)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate checkout holds: %w", rows.Err())
	}
	return holds, nil
}

func (r *CheckoutRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *CheckoutRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *CheckoutRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
