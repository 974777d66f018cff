package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	UniqueViolationCode      = "23505"
	ForeignKeyViolationCode  = "23503"
	SerializationFailureCode = "40001"
	DeadlockDetectedCode     = "40P01"
)

// AsPgError unwraps err to a *pgconn.PgError when it carries one.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRetryable reports whether a transaction failing with err may succeed if re-run.
// Racing first inserts surface as unique violations, so those count too.
func IsRetryable(err error) bool {
	pe, ok := AsPgError(err)
	if !ok {
		return false
	}
	switch pe.Code {
	case SerializationFailureCode, DeadlockDetectedCode, UniqueViolationCode:
		return true
	default:
		return false
	}
}
