package common

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeTransport for network/timeout/TLS failures reaching the tracker
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeDecode for tracker bodies that are neither JSON nor XML
	ErrorTypeDecode ErrorType = "decode"
	// ErrorTypeAuth for rejected tracker credentials
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeConfiguration for unreachable or misconfigured tracker instances
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeValidation for invalid form submissions
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeCreation for ticket creation rejected by the tracker
	ErrorTypeCreation ErrorType = "creation"
	// ErrorTypeDomainState for tracker-side state that blocks a submission
	ErrorTypeDomainState ErrorType = "domain_state"
	// ErrorTypeStorage for option store persistence errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeInternal for internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// PluginError represents a structured error with context
type PluginError struct {
	Type      ErrorType              `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface
func (e *PluginError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *PluginError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *PluginError) WithContext(key string, value interface{}) *PluginError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *PluginError) WithCause(cause error) *PluginError {
	e.Cause = cause
	return e
}

// WithDetails sets the detail text
func (e *PluginError) WithDetails(details string) *PluginError {
	e.Details = details
	return e
}

// HTTPStatus maps the error type to the status the plugin's own API returns.
func (e *PluginError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeCreation, ErrorTypeDomainState:
		return http.StatusBadRequest
	case ErrorTypeAuth:
		return http.StatusUnauthorized
	case ErrorTypeConfiguration, ErrorTypeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new PluginError
func NewError(errorType ErrorType, code, message string) *PluginError {
	return &PluginError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewAuthError(code, message string) *PluginError {
	return NewError(ErrorTypeAuth, code, message)
}

func NewConfigurationError(code, message string) *PluginError {
	return NewError(ErrorTypeConfiguration, code, message)
}

func NewValidationError(code, message string) *PluginError {
	return NewError(ErrorTypeValidation, code, message)
}

func NewCreationError(code, message string) *PluginError {
	return NewError(ErrorTypeCreation, code, message)
}

func NewDomainStateError(code, message string) *PluginError {
	return NewError(ErrorTypeDomainState, code, message)
}

func NewStorageError(code, message string) *PluginError {
	return NewError(ErrorTypeStorage, code, message)
}

// AsPluginError unwraps err into a PluginError when possible.
func AsPluginError(err error) (*PluginError, bool) {
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
