package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// AI provider errors

var (
	// ErrMissingAPIKey indicates the provider has no API key configured
	ErrMissingAPIKey = errors.New("api key not configured")

	// ErrProviderNotFound indicates an unknown or unconfigured provider
	ErrProviderNotFound = errors.New("ai provider not found")

	// ErrNetwork indicates a transport-level failure, including timeouts
	ErrNetwork = errors.New("network request failed")

	// ErrAPI indicates a non-2xx response from a vendor API
	ErrAPI = errors.New("api request failed")

	// ErrInvalidResponse indicates a 2xx response missing the expected payload
	ErrInvalidResponse = errors.New("invalid api response")

	// ErrImageDownload indicates the referenced image could not be fetched
	ErrImageDownload = errors.New("image download failed")

	// ErrUnsupportedCapability indicates the provider does not implement the
	// requested operation (e.g. image generation on a text-only provider)
	ErrUnsupportedCapability = errors.New("capability not supported by provider")
)

// APIError carries vendor context for a non-2xx response. It unwraps to
// ErrAPI so callers can match the kind without inspecting the message.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap returns the sentinel kind
func (e *APIError) Unwrap() error {
	return ErrAPI
}

// NewAPIError creates an APIError for a vendor response
func NewAPIError(provider string, statusCode int, body string) *APIError {
	return &APIError{
		Provider:   provider,
		StatusCode: statusCode,
		Body:       body,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
