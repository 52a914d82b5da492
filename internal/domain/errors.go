package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrNoMatch             = errors.New("no match")
	ErrInvalidColumnFormat = errors.New("invalid column format")
	ErrDomain              = errors.New("domain error")
)

// ParameterError reports an out-of-domain configuration input.
type ParameterError struct {
	Name   string
	Value  any
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Name, e.Value, e.Reason)
}

func (e *ParameterError) Is(target error) bool { return target == ErrInvalidParameter }

// NoMatchError reports that none of the requested names exist in a source.
type NoMatchError struct {
	Source    string
	Requested []string
	Available []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no match in %s: requested [%s], available [%s]",
		e.Source, strings.Join(e.Requested, ", "), strings.Join(e.Available, ", "))
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }

// ColumnFormatError reports a missing column or one whose header or cells
// do not have the expected form, such as a year header without 4 digits.
type ColumnFormatError struct {
	Column string
	Reason string
}

func (e *ColumnFormatError) Error() string {
	return fmt.Sprintf("invalid column format %q: %s", e.Column, e.Reason)
}

func (e *ColumnFormatError) Is(target error) bool { return target == ErrInvalidColumnFormat }

// Domain error codes.
const (
	CodeNoObservations      = "no_observations"
	CodeZeroBaseline        = "zero_baseline"
	CodeInsufficientHistory = "insufficient_history"
	CodeZeroArea            = "zero_area"
)

// DomainError reports a computation whose denominator is zero or whose
// inputs cannot support the requested estimate. Subject names the ward or
// category that triggered it.
type DomainError struct {
	Code    string
	Subject string
	Detail  string
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("domain error %s", e.Code)
	if e.Subject != "" {
		msg += fmt.Sprintf(" for %s", e.Subject)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DomainError) Is(target error) bool { return target == ErrDomain }
