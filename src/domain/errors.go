package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrAuthorization  = errors.New("not authorized")
	ErrConflict       = errors.New("conflict")
	ErrTransientStore = errors.New("transient store error")

	ErrUnavailableServer = errors.New("Oops, something unexpected happened. Please try again later.")
)

// Error carries the failing operation and one or more kinds from the sentinel
// list above, so callers branch with errors.Is(err, domain.ErrNotFound).
type Error struct {
	Op      string
	Message string
	Kinds   []error
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + " - " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, len(e.Kinds)+1)
	errs = append(errs, e.Kinds...)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func newError(kinds []error, op string, format string, args ...any) error {
	return &Error{Op: op, Message: fmt.Sprintf(format, args...), Kinds: kinds}
}

func NewValidationError(op string, format string, args ...any) error {
	return newError([]error{ErrValidation}, op, format, args...)
}

func NewNotFoundError(op string, format string, args ...any) error {
	return newError([]error{ErrNotFound}, op, format, args...)
}

// NewAuthorizationError never names the owner of the entity.
func NewAuthorizationError(op string, format string, args ...any) error {
	return newError([]error{ErrAuthorization}, op, format, args...)
}

func NewConflictError(op string, format string, args ...any) error {
	return newError([]error{ErrConflict}, op, format, args...)
}

// NewEndpointError is returned by edge creation when an endpoint cannot be
// used. It is a validation error and also carries the underlying reason
// (ErrNotFound or ErrAuthorization).
func NewEndpointError(op string, reason error, format string, args ...any) error {
	return newError([]error{ErrValidation, reason}, op, format, args...)
}

func NewTransientStoreError(op string, cause error) error {
	return &Error{Op: op, Message: "storage unavailable", Kinds: []error{ErrTransientStore}, Cause: cause}
}

func IsValidation(err error) bool     { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool       { return errors.Is(err, ErrNotFound) }
func IsAuthorization(err error) bool  { return errors.Is(err, ErrAuthorization) }
func IsConflict(err error) bool       { return errors.Is(err, ErrConflict) }
func IsTransientStore(err error) bool { return errors.Is(err, ErrTransientStore) }
