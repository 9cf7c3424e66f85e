package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
)

type StockHoldRepository struct {
	pool *pgxpool.Pool
}

func NewStockHoldRepository(pool *pgxpool.Pool) *StockHoldRepository {
	return &StockHoldRepository{pool: pool}
}

func (r *StockHoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *StockHoldRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	const query = `SELECT id, name, stock_quantity FROM products WHERE id = $1`
	return r.scanProduct(r.queryRow(ctx, query, productID))
}

// GetProductForUpdate locks the product row for the duration of the calling
// transaction, serializing concurrent check-and-insert sequences per product.
func (r *StockHoldRepository) GetProductForUpdate(ctx context.Context, productID string) (domain.Product, error) {
	const query = `SELECT id, name, stock_quantity FROM products WHERE id = $1 FOR UPDATE`
	return r.scanProduct(r.queryRow(ctx, query, productID))
}

func (r *StockHoldRepository) scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.StockQuantity)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Product{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *StockHoldRepository) SumActiveHolds(ctx context.Context, productID string, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM stock_holds
WHERE product_id = $1 AND state = 'active' AND expires_at > $2`

	var total int
	if err := r.queryRow(ctx, query, productID, now).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum active holds: %w", err)
	}
	return total, nil
}

func (r *StockHoldRepository) CreateHold(ctx context.Context, hold domain.StockHold) error {
	const stmt = `
INSERT INTO stock_holds (id, product_id, holder_id, quantity, state, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.ProductID,
		hold.HolderID,
		hold.Quantity,
		hold.State,
		hold.CreatedAt,
		hold.ExpiresAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrProductNotFound
		}
		return fmt.Errorf("create stock hold: %w", err)
	}
	return nil
}

func (r *StockHoldRepository) GetHold(ctx context.Context, holdID string) (domain.StockHold, error) {
	const query = `
SELECT id, product_id, holder_id, quantity, state, created_at, expires_at
FROM stock_holds
WHERE id = $1`

	var h domain.StockHold
	var state string
	err := r.queryRow(ctx, query, holdID).
		Scan(&h.ID, &h.ProductID, &h.HolderID, &h.Quantity, &state, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.StockHold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.StockHold{}, domain.ErrHoldNotFound
		}
		return domain.StockHold{}, fmt.Errorf("get stock hold: %w", err)
	}
	h.State = domain.HoldState(state)
	return h, nil
}

// UpdateHoldState is the compare-and-swap transition: the update only lands
// when the row is still in the expected pre-state.
func (r *StockHoldRepository) UpdateHoldState(ctx context.Context, holdID string, from, to domain.HoldState) (bool, error) {
	const stmt = `UPDATE stock_holds SET state = $3 WHERE id = $1 AND state = $2`

	tag, err := r.exec(ctx, stmt, holdID, from, to)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("update stock hold state: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *StockHoldRepository) ReleaseAllFor(ctx context.Context, productID, holderID string) (int, error) {
	const stmt = `
UPDATE stock_holds
SET state = 'released'
WHERE product_id = $1 AND holder_id = $2 AND state = 'active'`

	tag, err := r.exec(ctx, stmt, productID, holderID)
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("release holds for holder: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ExpireOverdue is the reaper's bulk transition. The state condition makes it
// safe against concurrent confirms and releases on the same rows.
func (r *StockHoldRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	const stmt = `
UPDATE stock_holds
SET state = 'expired'
WHERE state = 'active' AND expires_at < $1`

	tag, err := r.exec(ctx, stmt, now)
	if err != nil {
		return 0, fmt.Errorf("expire stock holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *StockHoldRepository) ListActiveForProduct(ctx context.Context, productID string, now time.Time) ([]domain.StockHold, error) {
	const query = `
SELECT id, product_id, holder_id, quantity, state, created_at, expires_at
FROM stock_holds
WHERE product_id = $1 AND state = 'active' AND expires_at > $2
ORDER BY created_at ASC`

	return r.listHolds(ctx, query, productID, now)
}

func (r *StockHoldRepository) ListActiveForHolder(ctx context.Context, holderID string, now time.Time) ([]domain.StockHold, error) {
	const query = `
SELECT id, product_id, holder_id, quantity, state, created_at, expires_at
FROM stock_holds
WHERE holder_id = $1 AND state = 'active' AND expires_at > $2
ORDER BY created_at ASC`

	return r.listHolds(ctx, query, holderID, now)
}

func (r *StockHoldRepository) listHolds(ctx context.Context, query string, args ...any) ([]domain.StockHold, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list stock holds: %w", err)
	}
	defer rows.Close()

	var holds []domain.StockHold
	for rows.Next() {
		var h domain.StockHold
		var state string
		if err := rows.Scan(&h.ID, &h.ProductID, &h.HolderID, &h.Quantity, &state, &h.CreatedAt, &h.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan stock hold: %w", err)
		}
		h.State = domain.HoldState(state)
		holds = append(holds, h)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate stock holds: %w", rows.Err())
	}
	return holds, nil
}

func (r *StockHoldRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *StockHoldRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *StockHoldRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
