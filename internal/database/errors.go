package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err came from a unique constraint.
// PostgreSQL errors are matched by SQLSTATE, SQLite ones by message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
