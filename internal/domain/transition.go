package domain

// HoldKind selects which transition table applies.
type HoldKind string

const (
	KindStock    HoldKind = "stock"
	KindCheckout HoldKind = "checkout"
)

// Both hold kinds share the same shape: one live state, several terminal
// states, and no transition out of a terminal state.
var transitions = map[HoldKind]map[HoldState][]HoldState{
	KindStock: {
		HoldStateActive: {HoldStateReleased, HoldStateExpired, HoldStateConfirmed},
	},
	KindCheckout: {
		HoldStateActive: {HoldStateExpired, HoldStateConfirmed, HoldStateCancelled},
	},
}

// CanTransition reports whether a hold of the given kind may move from one
// state to another.
func CanTransition(kind HoldKind, from, to HoldState) bool {
	for _, next := range transitions[kind][from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a state change, returning ErrInvalidTransition for any
// move not in the table (including every move out of a terminal state).
func Transition(kind HoldKind, from, to HoldState) error {
	if !CanTransition(kind, from, to) {
		return ErrInvalidTransition
	}
	return nil
}

// Terminal reports whether the state admits no further transitions.
func Terminal(kind HoldKind, state HoldState) bool {
	return len(transitions[kind][state]) == 0
}
