package report

import (
	"errors"
	"fmt"
)

// Error codes for reporter runs.
const (
	ErrCodeDomain      = "DOMAIN_ERROR"
	ErrCodeConsistency = "CONSISTENCY_ERROR"
)

// DomainError reports invalid reporter configuration.
type DomainError struct {
	Param      string
	Value      string
	Constraint string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s=%s: %s", ErrCodeDomain, e.Param, e.Value, e.Constraint)
}

// ResumeMismatchError reports a resume whose configuration disagrees with
// the run recorded under the token. Extending a stream under different
// arithmetic would corrupt the cumulative column.
type ResumeMismatchError struct {
	Token    string
	Field    string
	Recorded string
	Given    string
}

// Error implements the error interface.
func (e *ResumeMismatchError) Error() string {
	return fmt.Sprintf("%s: run %s was recorded with %s=%s, resume requested %s",
		ErrCodeConsistency, e.Token, e.Field, e.Recorded, e.Given)
}

// IsResumeMismatch returns true if the error is a ResumeMismatchError.
// Uses errors.As to handle wrapped errors.
func IsResumeMismatch(err error) bool {
	var re *ResumeMismatchError
	return errors.As(err, &re)
}
