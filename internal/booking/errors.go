package booking

import "fmt"

// Kind classifies a lifecycle failure.
type Kind string

const (
	KindNotFound        Kind = "NotFound"
	KindInvalidInput    Kind = "InvalidInput"
	KindConflict        Kind = "Conflict"
	KindForbidden       Kind = "Forbidden"
	KindInvalidState    Kind = "InvalidState"
	KindPolicyViolation Kind = "PolicyViolation"
)

// Error is the typed error returned by every booking operation.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, booking.ErrConflict).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrPolicyViolation = &Error{Kind: KindPolicyViolation}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
