package api

import "fmt"

// ErrorType represents the category of a gateway error.
type ErrorType string

const (
	ErrorTypeServerError        ErrorType = "server_error"
	ErrorTypeInvalidRequest     ErrorType = "invalid_request"
	ErrorTypeModelNotFound      ErrorType = "model_not_found"
	ErrorTypeCatalogUnavailable ErrorType = "catalog_unavailable"
	ErrorTypeProviderError      ErrorType = "provider_error"
)

// APIError represents a structured gateway error with type, code, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level
// error response on the REST surface.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Message: message,
	}
}

// NewModelNotFoundError creates an APIError for a model id absent from the
// current catalog snapshot.
func NewModelNotFoundError(modelID string) *APIError {
	return &APIError{
		Type:    ErrorTypeModelNotFound,
		Message: fmt.Sprintf("Model '%s' not found in available models.", modelID),
	}
}

// NewCatalogUnavailableError creates an APIError for an unreachable catalog.
func NewCatalogUnavailableError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeCatalogUnavailable,
		Message: message,
	}
}

// NewProviderError creates an APIError for an upstream provider failure.
func NewProviderError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeProviderError,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}
