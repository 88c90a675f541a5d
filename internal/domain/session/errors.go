// internal/domain/session/errors.go
package session

import "fmt"

// ValidationError rejects a request before any mutation takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an absent session, item or product.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// DuplicateTabNameError rejects a session whose tab name is already in use
// by a non-terminated session of the same user and device.
type DuplicateTabNameError struct {
	TabName string
}

func (e *DuplicateTabNameError) Error() string {
	return fmt.Sprintf("tab name %q already in use", e.TabName)
}

// ConcurrencyLimitError rejects session creation once the per-(user, device)
// cap of simultaneously open sessions is reached.
type ConcurrencyLimitError struct {
	Limit int
}

func (e *ConcurrencyLimitError) Error() string {
	return fmt.Sprintf("concurrent session limit of %d reached", e.Limit)
}

// StaleSessionError reports a mutation attempted against a session that has
// already reached a terminal state.
type StaleSessionError struct {
	SessionID uint
	State     State
}

func (e *StaleSessionError) Error() string {
	return fmt.Sprintf("session %d is %s and can no longer be modified", e.SessionID, e.State)
}

// InsufficientStockError reports confirmed insufficient stock for a product.
type InsufficientStockError struct {
	ProductID uint
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// PersistenceError wraps an underlying store failure. The session is left in
// its last successfully committed state.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
