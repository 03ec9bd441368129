package domain

import "fmt"

// Error types for consistent error handling across the service.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrRegistry carries a non-success response from the external registry verbatim.
type ErrRegistry struct {
	StatusCode int
	Body       string
}

func (e *ErrRegistry) Error() string {
	return fmt.Sprintf("registry returned status %d: %s", e.StatusCode, e.Body)
}

// ErrPrecondition indicates the caller must finish another step first.
// Redirect names the step that resolves it.
type ErrPrecondition struct {
	Condition string
	Redirect  string
}

func (e *ErrPrecondition) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.Condition)
}

// ErrInvalidTransition indicates an onboarding event is not allowed in the current state.
type ErrInvalidTransition struct {
	From  string
	Event string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Event, e.From)
}

// ErrSignature indicates an inbound webhook failed signature verification.
type ErrSignature struct {
	Reason string
}

func (e *ErrSignature) Error() string {
	return fmt.Sprintf("invalid signature: %s", e.Reason)
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates the operation conflicts with current state.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}
