package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to provider failure envelopes.
// ProviderCode is the numeric CODE the envelope carries; it is not an HTTP
// status (the provider contract keeps transport status at 200 and encodes the
// outcome in the body). HTTPStatus is only used for non-envelope surfaces.
type AppError struct {
	Code         string `json:"error_code"`
	Message      string `json:"message"`
	ProviderCode int    `json:"-"`
	HTTPStatus   int    `json:"-"`
	Err          error  `json:"-"` // wrapped internal error, never sent to the provider
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, providerCode int, httpStatus int) *AppError {
	return &AppError{
		Code:         code,
		Message:      message,
		ProviderCode: providerCode,
		HTTPStatus:   httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, providerCode int, httpStatus int, err error) *AppError {
	return &AppError{
		Code:         code,
		Message:      message,
		ProviderCode: providerCode,
		HTTPStatus:   httpStatus,
		Err:          err,
	}
}

// ---- Validation (VAL) ----

func ErrMissingParams(what string) *AppError {
	return New("VAL_001", "missing "+what, 400, http.StatusBadRequest)
}

func ErrBadBetFormat(err error) *AppError {
	return Wrap("VAL_002", "bad bet format", 400, http.StatusBadRequest, err)
}

func ErrUnknownBank(bankID string) *AppError {
	return New("VAL_003", fmt.Sprintf("unknown bank %q", bankID), 400, http.StatusBadRequest)
}

func ErrDialectMismatch() *AppError {
	return New("VAL_004", "bank protocol mismatch: expected xml", 400, http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidHash() *AppError {
	return New("AUTH_001", "INVALID_HASH", 401, http.StatusUnauthorized)
}

func ErrInvalidToken(err error) *AppError {
	return Wrap("AUTH_002", "INVALID_TOKEN", 401, http.StatusUnauthorized, err)
}

func ErrSessionNotFound() *AppError {
	return New("AUTH_003", "SESSION_NOT_FOUND", 401, http.StatusUnauthorized)
}

// ---- Lookup (REF) ----

func ErrUserNotFound() *AppError {
	return New("REF_001", "USER_NOT_FOUND", 404, http.StatusNotFound)
}

// ErrOriginalTransactionNotFound carries the provider-specific 302 body code
// for a refund whose original settlement is unknown.
func ErrOriginalTransactionNotFound() *AppError {
	return New("REF_002", "ORIGINAL_TRANSACTION_NOT_FOUND", 302, http.StatusNotFound)
}

// ---- System (SYS) ----

// ErrLockTimeout marks a transient failure; the provider retries and the
// idempotency check makes the retry safe.
func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "temporary failure, retry", 500, http.StatusServiceUnavailable, err)
}

// InternalError wraps an unexpected failure as a generic SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "internal error", 500, http.StatusInternalServerError, err)
}
