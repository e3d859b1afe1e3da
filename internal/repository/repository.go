package repository

import (
	"context"
	"errors"

	"careteam-chat-backend/pkg/apperr"

	"gorm.io/gorm"
)

// wrapDBError converts driver-level failures into the application error
// taxonomy. Record-not-found is handled at each call site because its
// meaning depends on the query; everything else is a store availability
// problem from the caller's point of view.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Unavailable(op+" timed out", err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(op + ": record already exists")
	}
	return apperr.Unavailable(op+" failed", err)
}
