package session

import (
	"errors"
	"testing"
)

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		ok   bool
	}{
		{"active to suspended", StateActive, StateSuspended, true},
		{"suspended to active", StateSuspended, StateActive, true},
		{"active to completed", StateActive, StateCompleted, true},
		{"suspended to completed", StateSuspended, StateCompleted, true},
		{"active to cancelled", StateActive, StateCancelled, true},
		{"active to expired", StateActive, StateExpired, true},
		{"suspended to expired", StateSuspended, StateExpired, true},
		{"active to active", StateActive, StateActive, false},
		{"completed to active", StateCompleted, StateActive, false},
		{"cancelled to suspended", StateCancelled, StateSuspended, false},
		{"expired to completed", StateExpired, StateCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
			}
		})
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []State{StateCompleted, StateCancelled, StateExpired} {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
		if s.IsMutable() {
			t.Errorf("expected %s not to be mutable", s)
		}
	}
	for _, s := range []State{StateActive, StateSuspended} {
		if s.IsTerminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
		if !s.IsMutable() {
			t.Errorf("expected %s to be mutable", s)
		}
	}
}

func TestTransitionFromTerminalIsStale(t *testing.T) {
	sess := &Session{ID: 7, State: StateCompleted}

	err := sess.TransitionTo(StateActive)
	var stale *StaleSessionError
	if !errors.As(err, &stale) {
		t.Fatalf("expected StaleSessionError, got %v", err)
	}
	if stale.SessionID != 7 || stale.State != StateCompleted {
		t.Errorf("unexpected error payload: %+v", stale)
	}
}

func TestTransitionInvalidEdge(t *testing.T) {
	sess := &Session{ID: 1, State: StateActive}

	err := sess.TransitionTo(StateActive)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if sess.State != StateActive {
		t.Errorf("state changed on rejected transition: %s", sess.State)
	}
}

func TestTransitionToTerminalClearsActive(t *testing.T) {
	sess := &Session{ID: 1, State: StateActive, IsActive: true}

	if err := sess.TransitionTo(StateCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.IsActive {
		t.Error("expected IsActive to be cleared on terminal transition")
	}
}
