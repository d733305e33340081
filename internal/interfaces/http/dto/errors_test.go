package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeValidationFailed, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeInvalidID, http.StatusBadRequest},
		{ErrCodeInvalidQuantity, http.StatusUnprocessableEntity},
		{ErrCodeNoItems, http.StatusUnprocessableEntity},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeIdempotencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusConflict},
		{ErrCodeInvalidCredentials, http.StatusUnauthorized},
		{ErrCodeAccountInactive, http.StatusUnauthorized},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
		// Unknown code should return 500
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		pageSize   int
		totalPages int
	}{
		{"exact pages", 20, 10, 2},
		{"partial last page", 21, 10, 3},
		{"empty", 0, 10, 0},
		{"zero page size", 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewSuccessResponseWithMeta([]string{}, tt.total, 1, tt.pageSize)
			require.NotNil(t, resp.Meta)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.totalPages, resp.Meta.TotalPages)
			assert.Equal(t, tt.total, resp.Meta.Total)
		})
	}
}

func TestNewValidationErrorResponse_JSON(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "items[0].quantity", Message: "Quantity must be between 1 and 20", Code: "lte"},
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")
	errInfo := decoded["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errInfo["code"])
	assert.Equal(t, "req-1", errInfo["request_id"])
	details := errInfo["details"].([]any)
	require.Len(t, details, 1)
	assert.Equal(t, "items[0].quantity", details[0].(map[string]any)["field"])
}

func TestNewErrorResponse_OmitsEmptyRequestID(t *testing.T) {
	raw, err := json.Marshal(NewErrorResponse(ErrCodeNotFound, "Sale not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"NOT_FOUND","message":"Sale not found"}}`, string(raw))
}
