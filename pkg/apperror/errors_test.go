package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := Wrap("SYS_001", "internal error", 500, http.StatusInternalServerError, inner)

	assert.Equal(t, "[SYS_001] internal error: boom", err.Error())
	assert.ErrorIs(t, err, inner)

	bare := New("AUTH_001", "INVALID_HASH", 401, http.StatusUnauthorized)
	assert.Equal(t, "[AUTH_001] INVALID_HASH", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestAppError_ErrorsAsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handling callback: %w", ErrInvalidHash())

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestProviderCodes(t *testing.T) {
	assert.Equal(t, 401, ErrInvalidHash().ProviderCode)
	assert.Equal(t, 401, ErrInvalidToken(nil).ProviderCode)
	assert.Equal(t, 401, ErrSessionNotFound().ProviderCode)
	assert.Equal(t, 404, ErrUserNotFound().ProviderCode)
	// Refunds for unknown originals use the provider's dedicated body code.
	assert.Equal(t, 302, ErrOriginalTransactionNotFound().ProviderCode)
	assert.Equal(t, 400, ErrMissingParams("token").ProviderCode)
	assert.Equal(t, 500, InternalError(errors.New("x")).ProviderCode)
}

func TestHTTPStatuses(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, ErrInvalidHash().HTTPStatus)
	assert.Equal(t, http.StatusNotFound, ErrOriginalTransactionNotFound().HTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, ErrLockTimeout(errors.New("x")).HTTPStatus)
}
