package services

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these onto HTTP status codes.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateKey    = errors.New("duplicate record")
	ErrDatabase        = errors.New("database error")
	ErrServer          = errors.New("server error")
)

// Error is a service failure with a message that is safe to show to the client.
// Kind is one of the sentinel kinds above; Err is the underlying cause, if any.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Domain errors
var (
	ErrEmployeeNotFound       = &Error{Kind: ErrNotFound, Message: "Employee ID not found"}
	ErrDuplicateEmployee      = &Error{Kind: ErrDuplicateKey, Message: "Employee ID already exists"}
	ErrDuplicateApplicationNo = &Error{Kind: ErrDuplicateKey, Message: "Application number already exists"}
	ErrBorrowerNotFound       = &Error{Kind: ErrNotFound, Message: "Active borrower not found"}
	ErrVoucherNotFound        = &Error{Kind: ErrNotFound, Message: "Voucher not found"}
	ErrEmailTaken             = &Error{Kind: ErrDuplicateKey, Message: "Email address is already in use"}
	ErrConcurrentUpdate       = &Error{Kind: ErrDatabase, Message: "The record was changed by another request. Please try again."}
)

// Auth errors
var (
	ErrCredentialsRequired = &Error{Kind: ErrValidation, Message: "Email and password are required"}
	ErrInvalidEmail        = &Error{Kind: ErrValidation, Message: "Invalid email format"}
	ErrUnknownEmail        = &Error{Kind: ErrUnauthenticated, Message: "No account found with this email address. Please check your email or contact administrator."}
	ErrAccountInactive     = &Error{Kind: ErrUnauthenticated, Message: "Account is not active. Please contact administrator."}
	ErrInvalidPassword     = &Error{Kind: ErrUnauthenticated, Message: "Invalid password. Please check your password and try again."}
	ErrCurrentPassword     = &Error{Kind: ErrValidation, Message: "Current password is incorrect"}
	ErrPasswordTooShort    = &Error{Kind: ErrValidation, Message: "New password must be at least 6 characters long"}
	ErrPasswordMismatch    = &Error{Kind: ErrValidation, Message: "New password and confirmation do not match"}
	ErrSessionRequired     = &Error{Kind: ErrUnauthenticated, Message: "Authentication required"}
)

func validationError(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func dbError(err error) error {
	return &Error{Kind: ErrDatabase, Message: "Database error occurred", Err: err}
}

// Cause returns the underlying error of a service Error, or err itself.
func Cause(err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Err != nil {
		return svcErr.Err
	}
	return err
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return "Server error occurred"
}
