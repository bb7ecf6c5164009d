package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected int
	}{
		{"internal error", ErrCodeInternal, http.StatusInternalServerError},
		{"validation error", ErrCodeValidation, http.StatusBadRequest},
		{"bad request", ErrCodeBadRequest, http.StatusBadRequest},
		{"not found", ErrCodeNotFound, http.StatusNotFound},
		{"conflict", ErrCodeConflict, http.StatusConflict},
		{"sync running", ErrCodeSyncRunning, http.StatusConflict},
		{"upstream unavailable", ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{"unknown code falls back to 500", "ERR_SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "no completed run", "req-test-123")

	assert.False(t, resp.Success)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "no completed run", resp.Error.Message)
	assert.Equal(t, "req-test-123", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "initial", Message: "initial must be a boolean"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-1", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "initial", resp.Error.Details[0].Field)
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]int{"orders_synced": 3})

	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
}
