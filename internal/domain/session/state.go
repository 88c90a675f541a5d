// internal/domain/session/state.go
package session

// State represents the lifecycle state of a sale session
type State string

const (
	StateActive    State = "active"
	StateSuspended State = "suspended"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateExpired   State = "expired"
)

// validTransitions defines the session lifecycle. Terminal states have no
// outgoing edges.
var validTransitions = map[State][]State{
	StateActive:    {StateSuspended, StateCompleted, StateCancelled, StateExpired},
	StateSuspended: {StateActive, StateCompleted, StateCancelled, StateExpired},
	StateCompleted: {},
	StateCancelled: {},
	StateExpired:   {},
}

// IsTerminal reports whether no further transition is permitted from s
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateExpired
}

// CanTransitionTo reports whether the edge s -> target exists
func (s State) CanTransitionTo(target State) bool {
	for _, next := range validTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsMutable reports whether item and calculation mutations are permitted
func (s State) IsMutable() bool {
	return s == StateActive || s == StateSuspended
}

// TransitionTo applies a lifecycle transition to the session. A transition
// out of a terminal state fails with StaleSessionError; any other invalid
// edge fails with ValidationError.
func (s *Session) TransitionTo(target State) error {
	if s.State.IsTerminal() {
		return &StaleSessionError{SessionID: s.ID, State: s.State}
	}
	if !s.State.CanTransitionTo(target) {
		return &ValidationError{
			Field:  "state",
			Reason: "transition from " + string(s.State) + " to " + string(target) + " is not allowed",
		}
	}
	s.State = target
	if target.IsTerminal() {
		s.IsActive = false
	}
	return nil
}
