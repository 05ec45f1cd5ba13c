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
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeSettlementInProgress, http.StatusConflict},
		{ErrCodePaymentPending, http.StatusServiceUnavailable},
		{ErrCodeGatewayError, http.StatusBadGateway},
		{"PAYMENT_NOT_FOUND", http.StatusNotFound},
		{"INVALID_ALLOCATION_CONFIG", http.StatusUnprocessableEntity},
		{"ALREADY_REGISTERED", http.StatusConflict},
		{"CONCURRENT_UPDATE", http.StatusConflict},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestErrorEnvelope(t *testing.T) {
	body, err := json.Marshal(NewErrorResponse("PAYMENT_NOT_FOUND", "No payment found for reference"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"PAYMENT_NOT_FOUND","message":"No payment found for reference"}}`, string(body))
}

func TestValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "email", Message: "Invalid email format"},
		{Field: "amount", Message: "This field is required"},
	}
	resp := NewValidationErrorResponse("Request validation failed", "req-1", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
}
