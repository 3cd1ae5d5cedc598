package paygate

import "fmt"

// GatewayError represents a payment-gateway-specific error
type GatewayError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeValidation       = "validation_error"
	ErrCodeUpstream         = "upstream_error"
	ErrCodeSignatureInvalid = "signature_invalid"
	ErrCodeToken            = "token_error"
	ErrCodeNotFound         = "not_found"
)

// NewGatewayError creates a new gateway error
func NewGatewayError(code, message string, details map[string]interface{}) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewValidationError creates a validation error for a missing or malformed field
func NewValidationError(message string) *GatewayError {
	return NewGatewayError(ErrCodeValidation, message, nil)
}

// NewUpstreamError creates an error carrying a provider failure message
func NewUpstreamError(message string, details map[string]interface{}) *GatewayError {
	return NewGatewayError(ErrCodeUpstream, message, details)
}
