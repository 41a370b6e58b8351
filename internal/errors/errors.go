package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the domain error carried between services and handlers. It pairs
// a machine-readable code with a human-readable message so handlers can map
// failures to HTTP responses without string matching.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithDetails returns a copy of the error carrying extra context for clients.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// CodeOf extracts the error code from err, walking the wrap chain.
// Unrecognized errors report as internal.
func CodeOf(err error) ErrorCode {
	var de *Error
	if stderrors.As(err, &de) {
		return de.Code
	}
	var re *RepoError
	if stderrors.As(err, &re) {
		return ErrCodeDatabaseError
	}
	return ErrCodeInternalError
}

// MessageOf extracts the client-facing message from err. Errors that do not
// carry one get a generic message so internals never leak to clients.
func MessageOf(err error) string {
	var de *Error
	if stderrors.As(err, &de) {
		return de.Message
	}
	return "Internal server error"
}

// DetailsOf extracts optional client-facing details from err.
func DetailsOf(err error) map[string]interface{} {
	var de *Error
	if stderrors.As(err, &de) {
		return de.Details
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// RepoError wraps a storage layer failure with the operation that produced it.
// Transient marks failures worth retrying (serialization conflicts, dropped
// connections) as opposed to constraint violations and bad statements.
type RepoError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *RepoError) Error() string {
	return fmt.Sprintf("repo: %s: %v", e.Op, e.Err)
}

func (e *RepoError) Unwrap() error {
	return e.Err
}

// NewRepoError wraps err as a repository failure for operation op.
func NewRepoError(op string, err error, transient bool) *RepoError {
	return &RepoError{Op: op, Err: err, Transient: transient}
}

// IsTransient reports whether err is a repository failure worth retrying.
func IsTransient(err error) bool {
	var re *RepoError
	if stderrors.As(err, &re) {
		return re.Transient
	}
	return false
}
