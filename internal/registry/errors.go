package registry

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies registry call failures.
//
// The resolver treats every category the same way (no record, fall back to
// document values), but logs and metrics keep them apart so a broken lookup
// is distinguishable from a genuine miss.
type ErrorCategory string

const (
	// ErrorTimeout indicates the registry did not answer within the call timeout
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates an unparsable body or an unusable query
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates the registry rejected our credentials
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the registry is unreachable or failing
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorNotFound indicates the registry has no matching entity
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected failure on our side or an unexpected status
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps a failed registry call with its category
type Error struct {
	Category   ErrorCategory
	Op         string
	Message    string
	Underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("registry %s [%s]: %s: %v", e.Op, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("registry %s [%s]: %s", e.Op, e.Category, e.Message)
}

// Unwrap supports error unwrapping
func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, op, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Op:         op,
		Message:    message,
		Underlying: underlying,
	}
}

// CategoryOf extracts the category from err, ErrorInternal for foreign errors
func CategoryOf(err error) ErrorCategory {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ErrorInternal
}

// IsNotFound reports whether err is a registry miss rather than a failure
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Category == ErrorNotFound
}
