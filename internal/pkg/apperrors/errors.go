package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrRepositoryFailure = errors.New("repository failure")

	ErrInternalServer = errors.New("internal server error")

	ErrUnauthorized = errors.New("unauthorized")

	ErrForbidden = errors.New("forbidden")

	ErrConflict = errors.New("resource conflict")

	ErrInvalidPrincipal = errors.New("invalid principal")

	ErrInvalidRate = errors.New("invalid rate")

	ErrInvalidTerm = errors.New("invalid term")

	ErrInvalidLoanState = errors.New("invalid loan state")

	ErrLoanNotActive = errors.New("loan is not active")

	ErrInstallmentAlreadyPaid = errors.New("installment already paid")

	ErrInstallmentOutOfOrder = errors.New("installment paid out of order")
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapRepositoryError(cause error, message string) error {
	return &AppError{
		Code:    "REPOSITORY_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrRepositoryFailure, cause),
	}
}

// LoanError carries the loan context a caller needs to decide between retry and abort.
// Sequence and Status are omitted from the message when unset.
type LoanError struct {
	Op       string
	LoanID   int64
	Sequence int
	Status   string
	Err      error
}

func (e *LoanError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	fmt.Fprintf(&b, " loan %d", e.LoanID)
	if e.Sequence > 0 {
		fmt.Fprintf(&b, " installment %d", e.Sequence)
	}
	if e.Status != "" {
		fmt.Fprintf(&b, " (status %s)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *LoanError) Unwrap() error {
	return e.Err
}
