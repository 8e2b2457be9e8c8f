package inventoryapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/invsync/invsync/internal/constants"
)

// ErrInvalidResponse is returned when a success response cannot be decoded.
var ErrInvalidResponse = errors.New("invalid response from inventory service")

// ExternalServiceError reports a failure of a service outside this process.
type ExternalServiceError struct {
	// Service names the external service, e.g. "inventory"
	Service string

	// Code is a stable machine-readable identifier for the failure
	Code string

	// Message is a human-readable description
	Message string

	// Err is the underlying cause, may be nil
	Err error
}

// Error implements the error interface.
func (e *ExternalServiceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Service)
	b.WriteString(" service error [")
	b.WriteString(e.Code)
	b.WriteString("]: ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalServiceError creates an ExternalServiceError.
func NewExternalServiceError(service, code, message string, cause error) *ExternalServiceError {
	return &ExternalServiceError{
		Service: service,
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// NewInventoryServiceUnavailableError reports that the inventory service
// could not be reached. The code is always CodeInventoryServiceUnavailable.
func NewInventoryServiceUnavailableError(message string, cause error) *ExternalServiceError {
	return NewExternalServiceError(
		constants.ServiceInventory,
		constants.CodeInventoryServiceUnavailable,
		message,
		cause,
	)
}

// IsServiceUnavailable reports whether err is, or wraps, an inventory
// service unavailable error.
func IsServiceUnavailable(err error) bool {
	var ext *ExternalServiceError
	return errors.As(err, &ext) && ext.Code == constants.CodeInventoryServiceUnavailable
}

// ErrorDetail is one entry of the "errors" array in an inventory API error body.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// APIError is a non-success response from the inventory API.
type APIError struct {
	// StatusCode is the HTTP status of the response
	StatusCode int

	// Response is the raw response. Its body has already been read and closed.
	Response *http.Response

	errors []ErrorDetail
}

// NewAPIError creates an APIError for resp carrying errs.
func NewAPIError(resp *http.Response, errs []ErrorDetail) *APIError {
	e := &APIError{
		Response: resp,
		errors:   errs,
	}
	if resp != nil {
		e.StatusCode = resp.StatusCode
	}
	return e
}

// Errors returns the error details the APIError was created with.
func (e *APIError) Errors() []ErrorDetail {
	return e.errors
}

// Code returns CodeInventoryAPIError.
func (e *APIError) Code() string {
	return constants.CodeInventoryAPIError
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("inventory api returned status %d", e.StatusCode)
	if len(e.errors) == 0 {
		return msg
	}
	parts := make([]string, 0, len(e.errors))
	for _, d := range e.errors {
		if d.Code != "" {
			parts = append(parts, d.Code+": "+d.Message)
		} else {
			parts = append(parts, d.Message)
		}
	}
	return msg + ": " + strings.Join(parts, "; ")
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
}
