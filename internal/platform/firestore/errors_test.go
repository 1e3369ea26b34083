package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timi-123/shop-admin-sub000/internal/repositories"
)

func TestWrapErrorClassifiesGRPCCodes(t *testing.T) {
	cases := []struct {
		code codes.Code
		kind repositories.StoreErrorKind
	}{
		{code: codes.NotFound, kind: repositories.StoreErrorNotFound},
		{code: codes.AlreadyExists, kind: repositories.StoreErrorConflict},
		{code: codes.Aborted, kind: repositories.StoreErrorConflict},
		{code: codes.FailedPrecondition, kind: repositories.StoreErrorConflict},
		{code: codes.Unavailable, kind: repositories.StoreErrorUnavailable},
		{code: codes.ResourceExhausted, kind: repositories.StoreErrorUnavailable},
		{code: codes.PermissionDenied, kind: repositories.StoreErrorUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.code.String(), func(t *testing.T) {
			err := WrapError("orders.get", status.Error(tc.code, "boom"))
			var storeErr *repositories.StoreError
			if !errors.As(err, &storeErr) {
				t.Fatalf("expected *repositories.StoreError, got %T", err)
			}
			if storeErr.Kind != tc.kind || storeErr.Op != "orders.get" {
				t.Fatalf("unexpected classification for %s: %+v", tc.code, storeErr)
			}
		})
	}
}

func TestWrapErrorPassesThroughCancellation(t *testing.T) {
	if err := WrapError("op", status.Error(codes.Canceled, "gone")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("op", status.Error(codes.DeadlineExceeded, "slow")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if err := WrapError("op", context.DeadlineExceeded); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if WrapError("op", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestWrapErrorPreservesSentinelsFromTransactionBody(t *testing.T) {
	sentinel := errors.New("vendor status regressed")
	err := WrapError("transaction", sentinel)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel to be preserved, got %v", err)
	}
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || repoErr.IsConflict() || repoErr.IsNotFound() || repoErr.IsUnavailable() {
		t.Fatalf("expected unclassified store error, got %v", err)
	}
}

func TestWrapErrorKeepsKindRaisedInsideTransaction(t *testing.T) {
	missing := repositories.NewStoreError("orders.mutate", repositories.StoreErrorNotFound, errors.New("vendor order v9 missing after mutation"))
	err := WrapError("transaction", missing)

	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not-found to survive the transaction wrapper, got %v", err)
	}
	if missing.Op != "orders.mutate" {
		t.Fatalf("expected original op to be kept, got %q", missing.Op)
	}
}
