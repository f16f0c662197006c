package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeRateNotFound, http.StatusUnprocessableEntity},
		{ErrCodeNetwork, http.StatusBadGateway},
		{ErrCodeAutomation, http.StatusInternalServerError},
		{ErrCodeTooLarge, http.StatusRequestEntityTooLarge},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		field    string
		contains string
	}{
		{
			name:     "validation",
			err:      shared.NewValidationError("amount", "must be a decimal number"),
			status:   http.StatusBadRequest,
			code:     ErrCodeValidation,
			field:    "amount",
			contains: "must be a decimal number",
		},
		{
			name:     "rate not found",
			err:      shared.NewRateNotFoundError("USD has no rate on 2030-01-01", nil),
			status:   http.StatusUnprocessableEntity,
			code:     ErrCodeRateNotFound,
			contains: "2030-01-01",
		},
		{
			name:     "network",
			err:      shared.NewNetworkError("exchange rate server answered 503", nil),
			status:   http.StatusBadGateway,
			code:     ErrCodeNetwork,
			contains: "503",
		},
		{
			name:     "wrapped automation",
			err:      fmt.Errorf("submit: %w", shared.NewAutomationError("failed to click EMITIR", errors.New("timeout"))),
			status:   http.StatusInternalServerError,
			code:     ErrCodeAutomation,
			contains: "EMITIR",
		},
		{
			name:     "plain error is hidden",
			err:      errors.New("secret detail"),
			status:   http.StatusInternalServerError,
			code:     ErrCodeInternal,
			contains: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, info := FromError(tt.err)

			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, info.Code)
			assert.Equal(t, tt.field, info.Field)
			assert.Contains(t, info.Message, tt.contains)
			assert.NotContains(t, info.Message, "secret detail")
		})
	}
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrorInfo{Code: ErrCodeValidation, Message: "date: is required", Field: "date"}, "req-1")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"success": false,
		"error": {"code": "ERR_VALIDATION", "message": "date: is required", "field": "date", "request_id": "req-1"}
	}`, string(data))
}

func TestSuccessResponseJSON(t *testing.T) {
	data, err := json.Marshal(NewSuccessResponse(map[string]string{"message": "pong"}))
	require.NoError(t, err)

	assert.JSONEq(t, `{"success": true, "data": {"message": "pong"}}`, string(data))
}
