package envelope

import (
	"errors"
	"fmt"
)

// Error codes for envelope evaluation.
const (
	ErrCodeDomain      = "DOMAIN_ERROR"
	ErrCodeMissingData = "MISSING_DATA_ERROR"
)

// DomainError reports an input outside the envelope's domain.
type DomainError struct {
	Param      string
	Value      string
	Constraint string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s=%s: %s", ErrCodeDomain, e.Param, e.Value, e.Constraint)
}

// IsDomainError returns true if the error is a DomainError.
// Uses errors.As to handle wrapped errors.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// MissingDataError reports a modulus absent from a per-modulus table when
// the fallback policy forbids substitution.
type MissingDataError struct {
	Q uint64
}

// Error implements the error interface.
func (e *MissingDataError) Error() string {
	return fmt.Sprintf("%s: no per-modulus bound for q=%d and fallback policy is error", ErrCodeMissingData, e.Q)
}

// IsMissingData returns true if the error is a MissingDataError.
// Uses errors.As to handle wrapped errors.
func IsMissingData(err error) bool {
	var me *MissingDataError
	return errors.As(err, &me)
}
