package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeReturnValidation, http.StatusUnprocessableEntity},
		{ErrCodeInvalidTransition, http.StatusUnprocessableEntity},
		{ErrCodeStaleStatus, http.StatusConflict},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeCollaboratorFailed, http.StatusBadGateway},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeSaleNotReturnable, http.StatusUnprocessableEntity},
		{ErrCodeInvalidRefundSplit, http.StatusUnprocessableEntity},
		{ErrCodeInvalidRefund, http.StatusUnprocessableEntity},
		{ErrCodeRefundConflict, http.StatusConflict},
		{ErrCodeInvalidActor, http.StatusBadRequest},
		{ErrCodeInvalidStatus, http.StatusBadRequest},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"CONCURRENCY_CONFLICT", ErrCodeStaleStatus},
		{"VERSION_CONFLICT", ErrCodeStaleStatus},
		{"INVALID_INPUT", ErrCodeBadRequest},
		// Public codes pass through unchanged
		{ErrCodeNotFound, ErrCodeNotFound},
		{ErrCodeReturnValidation, ErrCodeReturnValidation},
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestLegacyCodesMapToKnownStatuses(t *testing.T) {
	for legacy, code := range LegacyErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[code]
		assert.True(t, ok, "%s maps to %s which has no HTTP status", legacy, code)
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID("VERSION_CONFLICT", "Return changed", "req-123")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeStaleStatus, resp.Error.Code)
	assert.Equal(t, "Return changed", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "sale_id", Message: "This field is required"},
		{Field: "items", Message: "Must be at least 1"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-789", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	got, ok := resp.Error.Details.([]ValidationDetail)
	require.True(t, ok)
	assert.Len(t, got, 2)
	assert.Equal(t, "sale_id", got[0].Field)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithDetails(ErrCodeReturnValidation, "Quantity exceeds returnable", "req-1",
		[]map[string]any{{"code": "QUANTITY_EXCEEDS_RETURNABLE", "item_index": 0}})

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["success"])
	errBody := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeReturnValidation, errBody["code"])
	assert.Equal(t, "req-1", errBody["request_id"])
	assert.Len(t, errBody["details"], 1)
}

func TestErrorResponseTimestamp(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponse(ErrCodeInternal, "Server error")
	after := time.Now()

	assert.False(t, resp.Error.Timestamp.Before(before.UTC().Add(-time.Millisecond)))
	assert.False(t, resp.Error.Timestamp.After(after.UTC().Add(time.Millisecond)))
}

func TestNewSuccessResponseWithMetaPagination(t *testing.T) {
	tests := []struct {
		total         int64
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{100, 0, 5, DefaultPageSize},
		{100, -1, 5, DefaultPageSize},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, 1, tt.pageSize)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
	}
}
