package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutHold reserves an in-progress order total for a customer identity.
// HoldNumber is the externally shareable reference (RES-XXXXXXXX).
type CheckoutHold struct {
	ID          string
	Email       string
	HoldNumber  string
	TotalAmount decimal.Decimal
	State       HoldState
	CreatedAt   time.Time
	ExpiresAt   time.Time
}
