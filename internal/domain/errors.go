package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmailRequired        = errors.New("email required")
	ErrHolderRequired       = errors.New("holder id required")
	ErrHoldNotFound         = errors.New("hold not found")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrNumberGeneration     = errors.New("hold number generation failed")
	ErrHoldNumberTaken      = errors.New("hold number already taken")
	ErrTransient            = errors.New("transient storage failure")
	ErrInvalidID            = errors.New("invalid id")
	ErrProductNameRequired  = errors.New("product name required")
	ErrInvalidStock         = errors.New("invalid stock quantity")
)

// InsufficientCapacityError carries the figures a caller needs to decide
// whether to retry with a smaller quantity. Matches ErrInsufficientCapacity
// under errors.Is.
type InsufficientCapacityError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientCapacityError) Is(target error) bool {
	return target == ErrInsufficientCapacity
}
