package services

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure; the HTTP layer maps each kind to a
// fixed status code.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindValidation
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a user-safe failure carrying its taxonomy kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches on kind and message so wrapped sentinels compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Validationf builds a validation error for a bad or missing input field.
func Validationf(format string, args ...interface{}) *Error {
	return newError(KindValidation, fmt.Sprintf(format, args...))
}

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrBookNotFound is returned when the book does not exist or is soft-deleted.
	ErrBookNotFound = newError(KindNotFound, "Book not found")

	// ErrBookUnavailable is returned when the book already has an active borrow.
	ErrBookUnavailable = newError(KindConflict, "Book is not available")

	// ErrForbiddenRole is returned when an admin account tries to borrow.
	ErrForbiddenRole = newError(KindForbidden, "Admins are not allowed to borrow books.")

	// ErrBorrowNotFound covers both a missing borrow and one owned by someone else.
	ErrBorrowNotFound = newError(KindNotFound, "Borrow record not found or not authorized")

	// ErrAlreadyReturned is returned on a second return of the same borrow.
	ErrAlreadyReturned = newError(KindConflict, "Book already returned")

	ErrUserNotFound = newError(KindNotFound, "User not found")

	ErrEmailTaken = newError(KindConflict, "Email already exists")

	ErrBookNotDeleted = newError(KindNotFound, "Book not found or already active")

	ErrInvalidCredentials = newError(KindUnauthorized, "Invalid credentials")

	ErrUnverified = newError(KindForbidden, "Please verify your email before logging in")

	ErrAdminOnly = newError(KindForbidden, "Admin only")
)

// KindOf reports the taxonomy kind of err. Anything that is not a service
// Error is Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
