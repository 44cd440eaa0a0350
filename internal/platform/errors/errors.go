package errors

import (
	stderrors "errors"

	"github.com/louisbranch/formrpc/internal/platform/response"
)

// Domain is the error domain attached to gRPC error details.
const Domain = "github.com/louisbranch/formrpc"

// Error is a transport error crossing the procedure boundary.
type Error struct {
	Code    Code             // Machine-readable error code
	Message string           // User-facing message
	Issues  *response.Issues // Validation detail, only for codes that carry issues
	Cause   error            // Wrapped underlying error, never serialized
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a transport error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithIssues creates a transport error carrying validation issues. Issues are
// dropped for codes that never carry them.
func WithIssues(code Code, message string, issues *response.Issues) *Error {
	err := New(code, message)
	if code.CarriesIssues() && !issues.Empty() {
		err.Issues = issues
	}
	return err
}

// Wrap creates a transport error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// AsTransport returns the transport error in err's chain, if any.
func AsTransport(err error) (*Error, bool) {
	var target *Error
	if stderrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the transport code for err, or INTERNAL_SERVER_ERROR.
func CodeOf(err error) Code {
	if target, ok := AsTransport(err); ok {
		return target.Code
	}
	return CodeInternalServerError
}
