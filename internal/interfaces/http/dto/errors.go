package dto

import "net/http"

// Domain error codes surfaced by the API
const (
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeInvalidUnitPrice    = "INVALID_UNIT_PRICE"
	ErrCodeNoItems             = "NO_ITEMS"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeAccountInactive     = "ACCOUNT_INACTIVE"
)

// Transport-level error codes
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeInvalidID    = "INVALID_ID"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeInvalidToken = "INVALID_TOKEN"
	ErrCodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	ErrCodeTooLarge     = "REQUEST_TOO_LARGE"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorCodeToHTTPStatus maps error codes to HTTP status codes
var ErrorCodeToHTTPStatus = map[string]int{
	// Structural validation -> 400
	ErrCodeValidationFailed: http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeInvalidID:        http.StatusBadRequest,

	// Business rule violations -> 422
	ErrCodeInvalidQuantity:  http.StatusUnprocessableEntity,
	ErrCodeInvalidUnitPrice: http.StatusUnprocessableEntity,
	ErrCodeNoItems:          http.StatusUnprocessableEntity,

	ErrCodeNotFound: http.StatusNotFound,

	// Conflicts -> 409
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeIdempotencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusConflict,

	// Auth -> 401
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeAccountInactive:    http.StatusUnauthorized,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeInvalidToken:       http.StatusUnauthorized,

	ErrCodeRateLimited: http.StatusTooManyRequests,
	ErrCodeTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeInternal:    http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeToHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
