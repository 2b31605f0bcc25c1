package firestore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"finitefield.org/delivery-admin/internal/platform/config"
)

func TestWrapErrorClassifiesCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		code codes.Code
		want Kind
	}{
		{name: "not found", code: codes.NotFound, want: KindNotFound},
		{name: "aborted", code: codes.Aborted, want: KindConflict},
		{name: "precondition", code: codes.FailedPrecondition, want: KindConflict},
		{name: "unavailable", code: codes.Unavailable, want: KindUnavailable},
		{name: "permission", code: codes.PermissionDenied, want: KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := WrapError("tiers.get", status.Error(tc.code, "boom"))
			require.Equal(t, tc.want, KindOf(err))
			require.Contains(t, err.Error(), "tiers.get")
		})
	}
}

func TestWrapErrorKeepsFirstClassification(t *testing.T) {
	t.Parallel()

	inner := WrapError("get", status.Error(codes.NotFound, "missing"))
	outer := WrapError("edit delivery-fee", inner)

	var fsErr *Error
	require.True(t, errors.As(outer, &fsErr))
	require.Equal(t, "get", fsErr.Op)
	require.Equal(t, "not_found", fsErr.Kind.String())
	require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestWrapErrorPassesThroughContextErrors(t *testing.T) {
	t.Parallel()

	require.Nil(t, WrapError("op", nil))
	require.ErrorIs(t, WrapError("op", context.DeadlineExceeded), context.DeadlineExceeded)
	require.ErrorIs(t, WrapError("op", status.Error(codes.DeadlineExceeded, "slow")), context.DeadlineExceeded)
	require.ErrorIs(t, WrapError("op", status.Error(codes.Canceled, "gone")), context.Canceled)
}

func TestProviderRequiresProjectID(t *testing.T) {
	t.Setenv(envGoogleProjectID, "")
	p := NewProvider(config.FirestoreConfig{})
	_, err := p.Client(context.Background())
	require.Error(t, err)

	require.NoError(t, p.Close())
	_, err = p.Client(context.Background())
	require.ErrorIs(t, err, ErrProviderClosed)
}
