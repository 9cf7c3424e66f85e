package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/testutil"
)

func TestCheckoutRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewCheckoutRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("CreateHold enforces hold number uniqueness", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		hold := domain.CheckoutHold{
			ID:          "11111111-1111-1111-1111-111111111111",
			Email:       "a@b.com",
			HoldNumber:  "RES-AAAA0001",
			TotalAmount: decimal.NewFromFloat(42.00),
			State:       domain.HoldStateActive,
			CreatedAt:   now,
			ExpiresAt:   now.Add(15 * time.Minute),
		}
		if err := repo.CreateHold(ctx, hold); err != nil {
			t.Fatalf("create: %v", err)
		}

		dup := hold
		dup.ID = "22222222-2222-2222-2222-222222222222"
		if err := repo.CreateHold(ctx, dup); err != domain.ErrHoldNumberTaken {
			t.Fatalf("expected ErrHoldNumberTaken, got %v", err)
		}
	})

	t.Run("GetByNumber round trip preserves amount", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		id := testutil.InsertCheckoutHold(t, ctx, pool, domain.CheckoutHold{
			Email:       "a@b.com",
			HoldNumber:  "RES-AAAA0002",
			TotalAmount: decimal.NewFromFloat(42.00),
			State:       domain.HoldStateActive,
			ExpiresAt:   now.Add(15 * time.Minute),
		})

		hold, err := repo.GetByNumber(ctx, "RES-AAAA0002")
		if err != nil {
			t.Fatalf("get by number: %v", err)
		}
		if hold.ID != id || hold.Email != "a@b.com" {
			t.Fatalf("unexpected hold: %+v", hold)
		}
		if !hold.TotalAmount.Equal(decimal.NewFromFloat(42.00)) {
			t.Fatalf("expected 42.00, got %s", hold.TotalAmount)
		}
		if hold.State != domain.HoldStateActive {
			t.Fatalf("expected active, got %s", hold.State)
		}

		if _, err := repo.GetByNumber(ctx, "RES-MISSING1"); err != domain.ErrHoldNotFound {
			t.Fatalf("expected ErrHoldNotFound, got %v", err)
		}

		byID, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("get by id: %v", err)
		}
		if byID.HoldNumber != "RES-AAAA0002" {
			t.Fatalf("unexpected hold: %+v", byID)
		}
	})

	t.Run("ListActiveByEmail excludes terminal and overdue holds", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		testutil.InsertCheckoutHold(t, ctx, pool, domain.CheckoutHold{
			Email: "a@b.com", HoldNumber: "RES-AAAA0003", TotalAmount: decimal.NewFromInt(10),
			State: domain.HoldStateActive, ExpiresAt: now.Add(10 * time.Minute),
		})
		testutil.InsertCheckoutHold(t, ctx, pool, domain.CheckoutHold{
			Email: "a@b.com", HoldNumber: "RES-AAAA0004", TotalAmount: decimal.NewFromInt(20),
			State: domain.HoldStateActive, ExpiresAt: now.Add(-1 * time.Minute),
		})
		testutil.InsertCheckoutHold(t, ctx, pool, domain.CheckoutHold{
			Email: "a@b.com", HoldNumber: "RES-AAAA0005", TotalAmount: decimal.NewFromInt(30),
			State: domain.HoldStateCancelled, ExpiresAt: now.Add(10 * time.Minute),
		})
		testutil.InsertCheckoutHold(t, ctx, pool, domain.CheckoutHold{
			Email: "c@d.com", HoldNumber: "RES-AAAA0006", TotalAmount: decimal.NewFromInt(40),
			State: domain.HoldStateActive, ExpiresAt: now.Add(10 * time.Minute),
		})

		active, err := repo.ListActiveByEmail(ctx, "a@b.com", now)
		if err != nil {
			t.Fatalf("list active: %v", err)
		}
		if len(active) != 1 || active[0].HoldNumber != "RES-AAAA0003" {
			t.Fatalf("unexpected active holds: %+v", active)
		}

		all, err := repo.ListByEmail(ctx, "a@b.com")
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 holds, got %d", len(all))
		}
	})

	t.Run("UpdateStateByNumber is compare-and-swap", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		testutil.InsertCheckoutHold(t, ctx, pool, domain.CheckoutHold{
			Email: "a@b.com", HoldNumber: "RES-AAAA0007", TotalAmount: decimal.NewFromInt(10),
			State: domain.HoldStateActive, ExpiresAt: now.Add(10 * time.Minute),
		})

		updated, err := repo.UpdateStateByNumber(ctx, "RES-AAAA0007", domain.HoldStateActive, domain.HoldStateConfirmed)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if !updated {
			t.Fatalf("expected transition to land")
		}

		updated, err = repo.UpdateStateByNumber(ctx, "RES-AAAA0007", domain.HoldStateActive, domain.HoldStateCancelled)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated {
			t.Fatalf("expected no row changed once terminal")
		}
	})

	t.Run("ExpireOverdue flips only overdue active holds", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		testutil.InsertCheckoutHold(t, ctx, pool, domain.CheckoutHold{
			Email: "a@b.com", HoldNumber: "RES-AAAA0008", TotalAmount: decimal.NewFromInt(10),
			State: domain.HoldStateActive, ExpiresAt: now.Add(-1 * time.Minute),
		})
		testutil.InsertCheckoutHold(t, ctx, pool, domain.CheckoutHold{
			Email: "a@b.com", HoldNumber: "RES-AAAA0009", TotalAmount: decimal.NewFromInt(20),
			State: domain.HoldStateActive, ExpiresAt: now.Add(10 * time.Minute),
		})

		expired, err := repo.ExpireOverdue(ctx, now)
		if err != nil {
			t.Fatalf("expire: %v", err)
		}
		if expired != 1 {
			t.Fatalf("expected 1 expired, got %d", expired)
		}

		hold, err := repo.GetByNumber(ctx, "RES-AAAA0008")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if hold.State != domain.HoldStateExpired {
			t.Fatalf("expected expired, got %s", hold.State)
		}
	})
}
