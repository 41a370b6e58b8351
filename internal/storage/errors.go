package storage

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/lib/pq"

	apperrors "github.com/lggm33/DUAD/internal/errors"
)

// WrapError converts a driver failure into a RepoError tagged with the
// repository operation, classifying transience from the PostgreSQL error
// code. Repositories wrap every non-nil driver error through here so
// callers can decide whether a retry is worthwhile.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperrors.NewRepoError(op, err, isTransient(err))
}

// IsUniqueViolation reports whether err is a unique constraint violation on
// the named constraint. An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// isTransient classifies failures where retrying the same statement may
// succeed: connection loss, pool exhaustion, serialization conflicts,
// deadlocks, cancelled statements, and server shutdown.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	switch pqErr.Code.Class() {
	case "08": // connection exceptions
		return true
	case "53": // insufficient resources (disk full, out of memory, too many connections)
		return true
	}

	switch pqErr.Code {
	case "40001": // serialization_failure
		return true
	case "40P01": // deadlock_detected
		return true
	case "57014": // query_canceled, statement timeout
		return true
	case "57P01": // admin_shutdown
		return true
	}

	return false
}
