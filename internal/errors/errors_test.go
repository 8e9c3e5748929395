package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/victornm/etrivia/internal/errors"
)

func TestConvert(t *testing.T) {
	tests := map[string]struct {
		err      error
		wantCode errors.Code
		wantHTTP int
	}{
		"coded error is returned as is": {
			err:      errors.New(errors.CodeNotFound),
			wantCode: errors.CodeNotFound,
			wantHTTP: http.StatusNotFound,
		},
		"wrapped coded error is unwrapped": {
			err:      fmt.Errorf("fetch: %w", errors.New(errors.CodeUnavailable)),
			wantCode: errors.CodeUnavailable,
			wantHTTP: http.StatusServiceUnavailable,
		},
		"context cancellation becomes canceled": {
			err:      fmt.Errorf("fetch: %w", context.Canceled),
			wantCode: errors.CodeCanceled,
			wantHTTP: 499,
		},
		"plain error becomes internal": {
			err:      stderrors.New("boom"),
			wantCode: errors.CodeInternal,
			wantHTTP: http.StatusInternalServerError,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			e := errors.Convert(tt.err)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantHTTP, e.HTTPStatusCode())
		})
	}
}

func TestError_Options(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	e := errors.New(errors.CodeUnavailable,
		errors.WithMessagef("source %s unreachable", "opentdb"),
		errors.WithCause(cause),
	)

	require.ErrorIs(t, e, cause)
	assert.Equal(t, "source opentdb unreachable", e.Message)
	assert.Equal(t, codes.Unavailable, e.GRPCStatus().Code())
	assert.True(t, errors.Is(fmt.Errorf("wrap: %w", e), errors.CodeUnavailable))
	assert.False(t, errors.Is(e, errors.CodeNotFound))
}
