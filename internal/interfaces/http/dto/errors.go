package dto

import (
	"net/http"

	"github.com/mealfee/backend/internal/domain/shared"
)

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeInvalidJSON = "INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// Domain codes come straight from the shared package so handlers can pass
// DomainError codes through without translation.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	shared.CodeValidation: http.StatusBadRequest,
	shared.CodeNotFound:   http.StatusNotFound,

	// Conflicts with existing state -> 409
	shared.CodeConflict:           http.StatusConflict,
	shared.CodeConcurrentConflict: http.StatusConflict,

	// The request is well formed but the system cannot act on it -> 422
	shared.CodeConfiguration: http.StatusUnprocessableEntity,
	shared.CodeInvalidState:  http.StatusUnprocessableEntity,

	// Upstream gateway failure, retryable -> 502
	shared.CodeGateway: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting to 500
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
