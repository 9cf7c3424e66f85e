package domain

import "time"

// HoldState is the lifecycle state shared by both hold kinds.
type HoldState string

const (
	HoldStateActive    HoldState = "active"
	HoldStateReleased  HoldState = "released"
	HoldStateExpired   HoldState = "expired"
	HoldStateConfirmed HoldState = "confirmed"
	HoldStateCancelled HoldState = "cancelled"
)

// StockHold is a time-bounded claim against a product's stock.
type StockHold struct {
	ID        string
	ProductID string
	HolderID  string
	Quantity  int
	State     HoldState
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Active reports whether the hold still counts toward availability at now.
// An overdue hold stops counting even before the reaper flips its state.
func (h StockHold) Active(now time.Time) bool {
	return h.State == HoldStateActive && h.ExpiresAt.After(now)
}
