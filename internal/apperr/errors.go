// Package apperr defines the business error taxonomy shared by the auth and
// user services. Callers match with errors.Is against the sentinel values or
// inspect the Kind with KindOf.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a business failure.
type Kind string

const (
	KindDuplicateEmail     Kind = "duplicate_email"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindAccountDisabled    Kind = "account_disabled"
	KindNotFound           Kind = "not_found"
	KindAlreadyVerified    Kind = "already_verified"
	KindInvalidCode        Kind = "invalid_code"
	KindCodeExpired        Kind = "code_expired"
	KindInvalidToken       Kind = "invalid_token"
	KindForbidden          Kind = "forbidden"
	KindEmailInUse         Kind = "email_in_use"
	KindSelfDeletion       Kind = "self_deletion"
	KindValidation         Kind = "validation_error"

	// KindInternal is reported for anything outside the taxonomy, e.g. store
	// connectivity failures.
	KindInternal Kind = "internal"
)

// Error is a typed business error. Field is set for validation errors.
type Error struct {
	Kind    Kind
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is reports whether target is an *Error of the same Kind, so a sentinel
// matches any error built with the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail, Message: "email already registered"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
	ErrAccountDisabled    = &Error{Kind: KindAccountDisabled, Message: "user account is deactivated"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrAlreadyVerified    = &Error{Kind: KindAlreadyVerified, Message: "user already verified"}
	ErrInvalidCode        = &Error{Kind: KindInvalidCode, Message: "invalid verification code"}
	ErrCodeExpired        = &Error{Kind: KindCodeExpired, Message: "verification code has expired"}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken, Message: "invalid token"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "permission denied"}
	ErrEmailInUse         = &Error{Kind: KindEmailInUse, Message: "email already in use"}
	ErrSelfDeletion       = &Error{Kind: KindSelfDeletion, Message: "you cannot delete your own account"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
)

// Forbidden returns a Forbidden error with a specific message.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Validation returns a ValidationError for a single field.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Field: field}
}

// KindOf returns the Kind carried by err, or KindInternal when err is not a
// business error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
