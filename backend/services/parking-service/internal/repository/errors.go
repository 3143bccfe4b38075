package repository

import (
	"errors"

	libdb "parkpay/backend/libs/db"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrStaleStatus means the row changed status before a guarded update ran.
	ErrStaleStatus = errors.New("repository: status changed concurrently")
)

func isUniqueViolation(err error) bool {
	return libdb.IsUniqueViolation(err)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}
