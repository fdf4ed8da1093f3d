package dberrors

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the application reacts to.
const (
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeCheckViolation       = "23514"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeAdminShutdown        = "57P01"
	CodeCannotConnectNow     = "57P03"
	CodeTooManyConnections   = "53300"
)

func pgCode(err error) (string, *pgconn.PgError) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr
	}
	return "", nil
}

// IsDuplicateConstraintError checks if the error is a PostgreSQL unique violation error
// for a specific constraint. An empty constraint name matches any unique violation.
func IsDuplicateConstraintError(err error, constraintName string) bool {
	code, pgErr := pgCode(err)
	if code != CodeUniqueViolation {
		return false
	}
	return constraintName == "" || pgErr.ConstraintName == constraintName
}

// IsForeignKeyViolation reports a dangling reference on insert or update.
func IsForeignKeyViolation(err error) bool {
	code, _ := pgCode(err)
	return code == CodeForeignKeyViolation
}

// IsSerializationConflict reports errors raised when a concurrent transaction won.
func IsSerializationConflict(err error) bool {
	code, _ := pgCode(err)
	return code == CodeSerializationFailure || code == CodeDeadlockDetected
}

// IsTransient reports failures worth retrying: lost or refused connections and
// server-side shutdown or overload. Query errors and cancellations are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch code, _ := pgCode(err); code {
	case CodeAdminShutdown, CodeCannotConnectNow, CodeTooManyConnections:
		return true
	case "":
	default:
		return false
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
