package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeEmptyLines, http.StatusBadRequest},
		{ErrCodeInsufficientStock, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeDuplicateReportDate, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeDuplicateRequest, http.StatusConflict},
		{ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
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
		err      *shared.DomainError
		expected string
	}{
		{shared.NewValidationError("bad"), ErrCodeValidation},
		{shared.NewDomainError(shared.CodeInsufficientStock, "short"), ErrCodeInsufficientStock},
		{shared.NewNotFoundError("Item", "x"), ErrCodeNotFound},
		{shared.NewConflictError(shared.CodeDuplicateReportDate, "dup"), ErrCodeDuplicateReportDate},
		{shared.ErrConcurrencyConflict, ErrCodeConcurrencyConflict},
		{shared.NewDomainError("SOMETHING_ELSE", "?"), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.err))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Purchase not found", "req-test-123")

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	errBody := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeNotFound, errBody["code"])
	assert.Equal(t, "req-test-123", errBody["request_id"])
	assert.NotContains(t, errBody, "details")
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	resp = NewSuccessResponseWithMeta(nil, 5, 1, 0)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}
