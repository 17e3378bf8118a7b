package sieve

import (
	"errors"
	"fmt"
)

// ErrCodeDomain identifies malformed or out-of-range numeric input.
const ErrCodeDomain = "DOMAIN_ERROR"

// DomainError reports a parameter that violates its domain constraint.
// It always carries the offending value and the constraint that was violated.
type DomainError struct {
	// Param names the offending parameter.
	Param string

	// Value is the offending value, rendered as a string.
	Value string

	// Constraint describes the expected constraint.
	Constraint string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s=%s: %s", ErrCodeDomain, e.Param, e.Value, e.Constraint)
}

// IsDomainError returns true if the error is a sieve domain error.
// Uses errors.As to handle wrapped errors.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// NewDomainError creates a DomainError for the given parameter.
func NewDomainError(param, value, constraint string) *DomainError {
	return &DomainError{Param: param, Value: value, Constraint: constraint}
}
