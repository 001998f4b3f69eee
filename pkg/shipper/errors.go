package shipper

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies provider errors into the handful of cases callers are
// expected to distinguish.
type Kind string

const (
	// KindConfiguration: missing credentials, base URL or an unknown
	// endpoint key. Raised before any network call.
	KindConfiguration Kind = "configuration"

	// KindAuth: the token exchange did not yield an access token.
	KindAuth Kind = "auth"

	// KindTransport: timeout or connection failure after the retry budget
	// is exhausted.
	KindTransport Kind = "transport"

	// KindProtocol: a non-2xx response, with provider-supplied error
	// entries when the body was parseable and raw status/text otherwise.
	KindProtocol Kind = "protocol"

	// KindValidation: bad input caught before any network call
	// (unsupported country, missing phone, missing tariff code).
	KindValidation Kind = "validation"
)

// ErrorEntry is one provider-reported error item.
type ErrorEntry struct {
	Code    string
	Message string
	Field   string
}

func (e ErrorEntry) String() string {
	s := fmt.Sprintf("code: %s, message: %s", e.Code, e.Message)
	if e.Field != "" {
		s += fmt.Sprintf(" (field: %s)", e.Field)
	}
	return s
}

// Error is the single error shape every provider boundary normalizes into.
type Error struct {
	Carrier    string
	Kind       Kind
	Message    string
	StatusCode int
	Entries    []ErrorEntry
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s error", e.Carrier, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Entries) > 0 {
		parts := make([]string, len(e.Entries))
		for i, entry := range e.Entries {
			parts[i] = entry.String()
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same kind, so callers can write
// errors.Is(err, &Error{Kind: KindTransport}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a provider error of the given kind.
func NewError(carrier string, kind Kind, message string) *Error {
	return &Error{Carrier: carrier, Kind: kind, Message: message}
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatusCode attaches the HTTP status.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// WithEntries attaches provider-reported error items.
func (e *Error) WithEntries(entries []ErrorEntry) *Error {
	e.Entries = entries
	return e
}

// IsKind reports whether err is a provider error of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// Retryable reports whether the operation may be retried as-is.
// Only transport-level failures qualify; protocol and validation errors
// would fail the same way again.
func Retryable(err error) bool {
	return IsKind(err, KindTransport)
}

// ErrCarrierNotFound indicates the requested provider is not registered.
var ErrCarrierNotFound = errors.New("carrier not found")
