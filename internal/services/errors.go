package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input rejected before any persistence.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientBalance marks a redemption the balance cannot cover.
	ErrInsufficientBalance = errors.New("insufficient points")
	// ErrExternalService marks a failure of the coupon-issuing collaborator.
	ErrExternalService = errors.New("external service failure")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientBalanceError is a user-visible, non-fatal redemption rejection.
type InsufficientBalanceError struct {
	Available int
	Required  int
}

// Shortfall is the number of points still missing.
func (e *InsufficientBalanceError) Shortfall() int {
	return e.Required - e.Available
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient points: you need %d more points (balance %d, required %d)",
		e.Shortfall(), e.Available, e.Required)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// ExternalServiceError wraps a failed call to an external collaborator.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }
