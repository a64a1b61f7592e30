// Package errors provides standardized error types for the domain layer.
// Engines surface structured reasons (kind + context) rather than opaque
// failures so operator tooling and user messaging can be specific.
package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Standard error categories
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input was provided
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request is not authorized
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the request is forbidden
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrConflict indicates a conflict with the current state
	ErrConflict = errors.New("conflict")
)

// Precondition violations. No state is mutated when these are returned.
var (
	// ErrTooEarly rejects round creation before the cooldown has elapsed
	ErrTooEarly = errors.New("distribution cooldown not elapsed")

	// ErrRoundAlreadyProcessed rejects operations on non-pending rounds
	ErrRoundAlreadyProcessed = errors.New("round already processed")

	// ErrBelowMinimum rejects withdrawals under the configured floor
	ErrBelowMinimum = errors.New("amount below configured minimum")

	// ErrInsufficientBalance rejects debits exceeding the available balance
	ErrInsufficientBalance = errors.New("insufficient available balance")

	// ErrNoWalletBound rejects operations requiring a bound wallet
	ErrNoWalletBound = errors.New("no wallet address bound")

	// ErrNotClaimable rejects pool claims for unsurpassed, already-claimed
	// or override-suspended levels
	ErrNotClaimable = errors.New("level not claimable")

	// ErrAdminOverrideActive rejects automatic level operations while an
	// admin override pins the user's level
	ErrAdminOverrideActive = errors.New("admin override active")
)

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Err     error
	Code    string
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *DomainError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// WithDetails adds details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// AlreadyExistsError creates an already exists error
func AlreadyExistsError(resource string) *DomainError {
	return &DomainError{
		Err:     ErrAlreadyExists,
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s already exists", resource),
	}
}

// ValidationError creates a validation error
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// TooEarlyError reports how long the caller must wait before the next
// round can be created.
func TooEarlyError(remainingSeconds int64) *DomainError {
	return &DomainError{
		Err:     ErrTooEarly,
		Code:    "TOO_EARLY",
		Message: fmt.Sprintf("next distribution available in %d seconds", remainingSeconds),
		Details: map[string]interface{}{
			"remaining_seconds": remainingSeconds,
		},
	}
}

// RoundAlreadyProcessedError reports an operation on a terminal round
func RoundAlreadyProcessedError(status string) *DomainError {
	return &DomainError{
		Err:     ErrRoundAlreadyProcessed,
		Code:    "ROUND_ALREADY_PROCESSED",
		Message: fmt.Sprintf("round is %s, expected pending", status),
		Details: map[string]interface{}{
			"status": status,
		},
	}
}

// BelowMinimumError reports which minimum was violated
func BelowMinimumError(minimum, requested decimal.Decimal) *DomainError {
	return &DomainError{
		Err:     ErrBelowMinimum,
		Code:    "BELOW_MINIMUM",
		Message: fmt.Sprintf("requested %s is below the minimum of %s", requested.String(), minimum.String()),
		Details: map[string]interface{}{
			"minimum":   minimum.String(),
			"requested": requested.String(),
		},
	}
}

// InsufficientBalanceError reports a debit exceeding the available balance
func InsufficientBalanceError(available, requested decimal.Decimal) *DomainError {
	return &DomainError{
		Err:     ErrInsufficientBalance,
		Code:    "INSUFFICIENT_BALANCE",
		Message: fmt.Sprintf("available %s, requested %s", available.String(), requested.String()),
		Details: map[string]interface{}{
			"available": available.String(),
			"requested": requested.String(),
		},
	}
}

// NoWalletBoundError reports a missing wallet binding
func NoWalletBoundError() *DomainError {
	return &DomainError{
		Err:     ErrNoWalletBound,
		Code:    "NO_WALLET",
		Message: "user has no bound wallet address",
	}
}

// NotClaimableError reports why a pool claim was rejected
func NotClaimableError(level int, reason string) *DomainError {
	return &DomainError{
		Err:     ErrNotClaimable,
		Code:    "NOT_CLAIMABLE",
		Message: fmt.Sprintf("level %d not claimable: %s", level, reason),
		Details: map[string]interface{}{
			"level":  level,
			"reason": reason,
		},
	}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidInput checks if an error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsPrecondition reports whether err is any of the precondition
// violations that leave state untouched.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrTooEarly) ||
		errors.Is(err, ErrRoundAlreadyProcessed) ||
		errors.Is(err, ErrBelowMinimum) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrNoWalletBound) ||
		errors.Is(err, ErrNotClaimable) ||
		errors.Is(err, ErrAdminOverrideActive)
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetErrorDetails extracts details from a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}
