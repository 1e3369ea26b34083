package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timi-123/shop-admin-sub000/internal/repositories"
)

// WrapError classifies a Firestore failure as a repositories.StoreError so the order service maps
// it the same way it maps Mongo and in-memory failures. Context cancellations are returned as
// context errors. Errors that are already classified, such as those returned from a transaction
// body, keep their kind.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}

	var storeErr *repositories.StoreError
	if errors.As(err, &storeErr) {
		if storeErr.Op == "" {
			storeErr.Op = op
		}
		return err
	}
	return repositories.NewStoreError(op, Kind(err), err)
}

// Kind maps the gRPC status of a Firestore error onto a store error kind.
func Kind(err error) repositories.StoreErrorKind {
	switch status.Code(err) {
	case codes.NotFound:
		return repositories.StoreErrorNotFound
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		// Aborted is what RunTransaction surfaces once MaxAttempts is exhausted.
		return repositories.StoreErrorConflict
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal:
		return repositories.StoreErrorUnavailable
	default:
		return repositories.StoreErrorUnknown
	}
}
