package usecase

import (
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeArchived          = "ARCHIVED"
	CodeBadRequest        = "BAD_REQUEST"
	CodeDatabase          = "DATABASE_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError is caused by the caller: bad input, missing records,
// forbidden transitions.
type DomainError struct {
	Code    string
	Message string
	Details []ValidationError
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError wraps an infrastructure failure.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func notFound(what, id string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", what, id)}
}

func badRequest(msg string) *DomainError {
	return &DomainError{Code: CodeBadRequest, Message: msg}
}

func validationFailed(errs []ValidationError) *DomainError {
	return &DomainError{Code: CodeValidation, Message: "validation failed", Details: errs}
}

// repoError converts repository errors into domain or technical errors.
func repoError(err error, what, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, entity.ErrNotFound):
		return notFound(what, id)
	case errors.Is(err, entity.ErrDuplicate):
		return &DomainError{Code: CodeConflict, Message: what + " already exists"}
	case errors.Is(err, entity.ErrArchived):
		return &DomainError{Code: CodeArchived, Message: what + " is archived"}
	case errors.Is(err, entity.ErrInvalidTransition):
		return &DomainError{Code: CodeInvalidTransition, Message: "invalid " + what + " status transition"}
	case IsDomainError(err), IsTechnicalError(err):
		return err
	}
	return &TechnicalError{Code: CodeDatabase, Message: "failed to access " + what, Err: err}
}
