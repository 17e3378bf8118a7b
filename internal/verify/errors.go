package verify

import (
	"errors"
	"fmt"
)

// Error codes for checker input validation and precision failures.
const (
	ErrCodeDomain    = "DOMAIN_ERROR"
	ErrCodePrecision = "PRECISION_INDETERMINATE"
)

// DomainError reports a checker parameter outside its domain.
type DomainError struct {
	Param      string
	Value      string
	Constraint string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s=%s: %s", ErrCodeDomain, e.Param, e.Value, e.Constraint)
}

// IsDomainError returns true if the error is a checker domain error.
// Uses errors.As to handle wrapped errors.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// PrecisionError reports that the configured decimal precision cannot
// resolve the sign of the margin. It corresponds to an Indeterminate
// verdict and tells the caller to rerun in exact mode; it never implies
// either direction of the inequality.
type PrecisionError struct {
	Precision uint32
	Threshold string
	Total     string
}

// Error implements the error interface.
func (e *PrecisionError) Error() string {
	return fmt.Sprintf("%s: %d digits cannot separate total_bound=%s from threshold=%s; rerun in exact mode",
		ErrCodePrecision, e.Precision, e.Total, e.Threshold)
}

// IsPrecisionError returns true if the error is a PrecisionError.
// Uses errors.As to handle wrapped errors.
func IsPrecisionError(err error) bool {
	var pe *PrecisionError
	return errors.As(err, &pe)
}
