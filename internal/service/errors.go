package service

import (
	"context"
	"errors"

	"goldshop/internal/database"
	"goldshop/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

var domainKinds = []error{
	domain.ErrNotFound,
	domain.ErrEmptyCart,
	domain.ErrInsufficientStock,
	domain.ErrOutOfStock,
	domain.ErrValidation,
	domain.ErrForbidden,
	domain.ErrConflict,
	domain.ErrInvalidStatusTransition,
	ErrInvalidCredentials,
	ErrInvalidToken,
	ErrTokenExpired,
}

// storeErr passes typed failures through and wraps everything else in a
// domain.StoreError, flagged retryable when the database reported contention.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}

	for _, kind := range domainKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	if domain.IsStoreError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return &domain.StoreError{Op: op, Err: err, Retryable: database.IsRetryable(err)}
}
