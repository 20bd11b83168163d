package storage

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"murmur/apperr"
)

// translate maps gorm errors onto the service taxonomy. notFoundMsg and
// conflictMsg give the caller-facing message for the respective kinds;
// an empty conflictMsg means the operation has no unique constraint in
// play and a duplicate-key error is unexpected.
func translate(err error, notFoundMsg, conflictMsg string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if notFoundMsg == "" {
			notFoundMsg = "Record is not defined"
		}
		return apperr.NotFound(notFoundMsg)
	}
	if conflictMsg != "" && isUniqueViolation(err) {
		return apperr.Conflict(conflictMsg)
	}
	return apperr.Storage(err)
}

// isUniqueViolation detects a unique-constraint failure. TranslateError
// gives gorm.ErrDuplicatedKey; the message check covers drivers opened
// without it (tests build their own gorm.Config).
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
