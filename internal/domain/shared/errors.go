// Package shared contains the error taxonomy and domain events used across
// all domain packages of the ledger.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds. Callers match them with errors.Is().
var (
	// ErrInvalidArgument is returned before any mutation when input is rejected.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "goal", "activity", "reconciliation"
	Op      string // operation that failed, e.g. "SetFrequency"
	Kind    error  // base error kind for errors.Is() checking
	Message string // human-readable message
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching against both the kind and the cause.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// InvalidArgument builds an InvalidArgument error with a formatted message.
func InvalidArgument(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Member domain errors
var (
	ErrMemberNotFound  = NewDomainError("member", "Get", ErrNotFound, "member not found")
	ErrInvalidMemberID = NewDomainError("member", "Validate", ErrInvalidArgument, "member id must not be empty")
)

// Goal domain errors
var (
	ErrInvalidFrequency = NewDomainError("goal", "Validate", ErrInvalidArgument, "frequency per week must be between 1 and 7")
	ErrInvalidWeight    = NewDomainError("goal", "Validate", ErrInvalidArgument, "weight must be positive")
	ErrInvalidGoalDates = NewDomainError("goal", "Validate", ErrInvalidArgument, "goal end date must not be before its start date")
	ErrUnknownGoalKind  = NewDomainError("goal", "ParseKind", ErrInvalidArgument, "unknown goal kind")
	ErrNoActiveGoals    = NewDomainError("goal", "Active", ErrNotFound, "no active goals")
	ErrGoalNotActive    = NewDomainError("goal", "Active", ErrNotFound, "no active goal of this kind")
)

// Activity domain errors
var (
	ErrUnknownActivity     = NewDomainError("activity", "ParseKind", ErrInvalidArgument, "unknown activity kind")
	ErrInvalidVoiceSession = NewDomainError("activity", "RecordVoiceSession", ErrInvalidArgument, "voice session must end after it starts")
)

// Calendar and window errors
var (
	ErrInvalidDate  = NewDomainError("calendar", "Parse", ErrInvalidArgument, "date must be YYYY-MM-DD")
	ErrInvalidMonth = NewDomainError("calendar", "Parse", ErrInvalidArgument, "month must be YYYY-MM")
	ErrInvalidRange = NewDomainError("calendar", "Range", ErrInvalidArgument, "range end must not be before its start")
)

// Reconciliation errors
var (
	ErrWeeklyStatusNotFound  = NewDomainError("reconciliation", "WeeklyStatus", ErrNotFound, "weekly status not found")
	ErrMonthlyTrophyNotFound = NewDomainError("reconciliation", "MonthlyTrophy", ErrNotFound, "monthly trophy not found")
	ErrWeekStartNotMonday    = NewDomainError("reconciliation", "Weekly", ErrInvalidArgument, "week start must be a Monday")
)

// IsInvalidArgument checks if the error is a validation error.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsUnauthorized checks if the error is an authorization failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
