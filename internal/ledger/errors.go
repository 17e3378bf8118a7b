package ledger

import (
	"errors"
	"fmt"
)

// Error codes for ledger loading and verification.
const (
	ErrCodeDomain      = "DOMAIN_ERROR"
	ErrCodeConsistency = "CONSISTENCY_ERROR"
)

// DomainError reports a constant that violates its constraint.
type DomainError struct {
	Param      string
	Value      string
	Constraint string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s=%s: %s", ErrCodeDomain, e.Param, e.Value, e.Constraint)
}

// ConsistencyError reports a persisted harmonic sum that disagrees with a
// fresh recomputation beyond tolerance.
type ConsistencyError struct {
	Q          int64
	Cached     string
	Recomputed string
	Tolerance  string
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: cached S(%d)=%s disagrees with recomputed %s beyond tolerance %s",
		ErrCodeConsistency, e.Q, e.Cached, e.Recomputed, e.Tolerance)
}

// IsConsistencyError returns true if the error is a ConsistencyError.
// Uses errors.As to handle wrapped errors.
func IsConsistencyError(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
