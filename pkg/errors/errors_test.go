package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/orderdesk/orderdesk-api/pkg/errors"
)

func TestHTTPStatusMapping(t *testing.T) {
	cause := errors.New("row not found")

	tests := []struct {
		err  *apperrors.AppError
		want int
	}{
		{err: apperrors.NotFound("order", cause), want: http.StatusNotFound},
		{err: apperrors.BadRequest("bad payload", nil), want: http.StatusBadRequest},
		{err: apperrors.Unauthorized(nil), want: http.StatusUnauthorized},
		{err: apperrors.Forbidden("not yours", nil), want: http.StatusForbidden},
		{err: apperrors.Conflict("already transitioned", nil), want: http.StatusConflict},
		{err: apperrors.Internal(cause), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus(), tt.err.Message)
	}
}

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperrors.Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")

	wrapped := fmt.Errorf("loading order: %w", err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, apperrors.ErrInternal, appErr.Code)
}
