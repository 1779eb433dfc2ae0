package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared across the billing and attendance domains.
// The HTTP layer maps these onto status codes.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeConfiguration      = "CONFIGURATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeGateway            = "GATEWAY_ERROR"
	CodeConcurrentConflict = "CONCURRENCY_CONFLICT"
	CodeInvalidState       = "INVALID_STATE"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeConflict, "Resource already exists")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrentConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)

// NewValidationError creates a VALIDATION_ERROR with the given message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewConfigurationError creates a CONFIGURATION_ERROR with the given message
func NewConfigurationError(message string) *DomainError {
	return NewDomainError(CodeConfiguration, message)
}

// NewConflictError creates a CONFLICT error with the given message
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// NewGatewayError creates a GATEWAY_ERROR with the given message.
// Gateway errors are retryable by the caller.
func NewGatewayError(message string) *DomainError {
	return NewDomainError(CodeGateway, message)
}
