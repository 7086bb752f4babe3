package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const (
	liveBookingConstraint = "bookings_session_user_live_key"
	membershipPKey        = "memberships_pkey"
)

// isConstraintViolation reports whether err is a Postgres error with the given
// SQLSTATE code raised by the named constraint. An empty constraint matches any.
func isConstraintViolation(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func isUniqueViolation(err error, constraint string) bool {
	return isConstraintViolation(err, pgUniqueViolation, constraint)
}

func isForeignKeyViolation(err error) bool {
	return isConstraintViolation(err, pgForeignKeyViolation, "")
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
