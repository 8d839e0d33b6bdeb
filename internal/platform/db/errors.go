package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the repositories translate into domain errors.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
)

// PgError unwraps err into a *pgconn.PgError when possible.
func PgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given SQLSTATE.
func IsCode(err error, code string) bool {
	pgErr, ok := PgError(err)
	return ok && pgErr.Code == code
}

// ConstraintName returns the violated constraint, or "" when err is not a
// constraint error.
func ConstraintName(err error) string {
	pgErr, ok := PgError(err)
	if !ok {
		return ""
	}
	return pgErr.ConstraintName
}
