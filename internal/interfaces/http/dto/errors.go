package dto

import (
	"errors"
	"net/http"

	"github.com/recibos/taxbot/internal/domain/shared"
)

// Error codes returned by the API.
// Format: ERR_<CATEGORY>
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeRateNotFound = "ERR_RATE_NOT_FOUND"
	ErrCodeNetwork      = "ERR_NETWORK"
	ErrCodeAutomation   = "ERR_AUTOMATION"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeRateNotFound: http.StatusUnprocessableEntity,
	ErrCodeNetwork:      http.StatusBadGateway,
	ErrCodeAutomation:   http.StatusInternalServerError,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,
}

// domainCodes maps DomainError codes to API error codes
var domainCodes = map[string]string{
	shared.CodeValidation:   ErrCodeValidation,
	shared.CodeRateNotFound: ErrCodeRateNotFound,
	shared.CodeNetwork:      ErrCodeNetwork,
	shared.CodeAutomation:   ErrCodeAutomation,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError converts an error into its HTTP status and error body.
// Errors that are not DomainErrors are reported as ERR_INTERNAL without
// exposing their text.
func FromError(err error) (int, ErrorInfo) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, ErrorInfo{
			Code:    ErrCodeInternal,
			Message: "internal error",
		}
	}

	code, ok := domainCodes[domainErr.Code]
	if !ok {
		code = ErrCodeInternal
	}
	return GetHTTPStatus(code), ErrorInfo{
		Code:    code,
		Message: domainErr.Error(),
		Field:   domainErr.Field,
	}
}
