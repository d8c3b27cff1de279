package shared

import (
	"fmt"
	"strings"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so wrapped sentinels match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
)

// Offender identifies one item that blocked an operation.
// Expected and Found are only meaningful for count mismatches.
type Offender struct {
	Key      string `json:"key"`
	Expected int    `json:"expected"`
	Found    int    `json:"found"`
	Reason   string `json:"reason,omitempty"`
}

func (o Offender) String() string {
	if o.Reason != "" {
		return fmt.Sprintf("%s (%s)", o.Key, o.Reason)
	}
	return fmt.Sprintf("%s (expected %d, found %d)", o.Key, o.Expected, o.Found)
}

// GuardViolation is returned when a precondition of a state-changing operation
// fails. No mutation has been applied when it is returned.
type GuardViolation struct {
	*DomainError
	Offenders []Offender `json:"offenders"`
}

// NewGuardViolation builds a guard violation whose message enumerates every offender.
func NewGuardViolation(code, summary string, offenders []Offender) *GuardViolation {
	msg := summary
	if len(offenders) > 0 {
		parts := make([]string, len(offenders))
		for i, o := range offenders {
			parts[i] = o.String()
		}
		msg = summary + ": " + strings.Join(parts, ", ")
	}
	return &GuardViolation{
		DomainError: NewDomainError(code, msg),
		Offenders:   offenders,
	}
}

// Unwrap exposes the underlying domain error to errors.As / errors.Is.
func (g *GuardViolation) Unwrap() error {
	return g.DomainError
}

// OffenderKeys returns the keys of all offenders in order.
func (g *GuardViolation) OffenderKeys() []string {
	keys := make([]string, len(g.Offenders))
	for i, o := range g.Offenders {
		keys[i] = o.Key
	}
	return keys
}
