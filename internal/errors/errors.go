// Package errors provides the error taxonomy for imagestudio.
package errors

import (
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for common cases
var (
	// Pre-flight errors, reported before any message is appended
	ErrEmptyInput        = errors.New("message needs text or at least one image")
	ErrMissingCredential = errors.New("no API key configured")
	ErrBusy              = errors.New("a message is already being sent")

	// Attachment errors
	ErrCapacityExceeded  = errors.New("attachment limit reached")
	ErrInvalidAttachment = errors.New("invalid attachment")

	// Response errors
	ErrNoResponse = errors.New("no response from API")

	// Transport errors
	ErrUntrustedEndpoint = errors.New("endpoint is not the trusted API host")

	// Storage errors
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	ErrNotFound             = errors.New("not found")
)

// RedactedKey replaces credential-shaped substrings in user-visible text.
const RedactedKey = "[API_KEY_HIDDEN]"

var credentialPattern = regexp.MustCompile(`sk-or-[a-zA-Z0-9-]+`)

// Redact hides anything that looks like an API key.
func Redact(s string) string {
	return credentialPattern.ReplaceAllString(s, RedactedKey)
}

// CapacityError reports an attachment add that would exceed the cap
type CapacityError struct {
	Max int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("maximum %d images allowed, remove some images first", e.Max)
}

// Is allows comparison with sentinel errors
func (e *CapacityError) Is(target error) bool {
	if target == ErrCapacityExceeded {
		return true
	}
	_, ok := target.(*CapacityError)
	return ok
}

// NewCapacityError creates a new CapacityError
func NewCapacityError(max int) *CapacityError {
	return &CapacityError{Max: max}
}

// AttachmentError describes a file that cannot be attached
type AttachmentError struct {
	Path    string
	Message string
}

func (e *AttachmentError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid attachment: %s", e.Message)
	}
	return fmt.Sprintf("invalid attachment %s: %s", e.Path, e.Message)
}

// Is allows comparison with sentinel errors
func (e *AttachmentError) Is(target error) bool {
	if target == ErrInvalidAttachment {
		return true
	}
	_, ok := target.(*AttachmentError)
	return ok
}

// NewAttachmentError creates a new AttachmentError
func NewAttachmentError(path, message string) *AttachmentError {
	return &AttachmentError{Path: path, Message: message}
}

// APIError represents a non-2xx reply from the completion API
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// NetworkError represents a failure to reach the API at all
type NetworkError struct {
	Operation string
	Endpoint  string
	Cause     error
}

func (e *NetworkError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s failed", e.Operation)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(operation, endpoint string, cause error) *NetworkError {
	return &NetworkError{Operation: operation, Endpoint: endpoint, Cause: cause}
}

// ResponseError represents a reply that carried no usable completion
type ResponseError struct {
	Message string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return ErrNoResponse.Error()
	}
	return fmt.Sprintf("%s: %s", ErrNoResponse.Error(), e.Message)
}

// Is allows comparison with sentinel errors
func (e *ResponseError) Is(target error) bool {
	if target == ErrNoResponse {
		return true
	}
	_, ok := target.(*ResponseError)
	return ok
}

// NewResponseError creates a new ResponseError
func NewResponseError(message string) *ResponseError {
	return &ResponseError{Message: message}
}

// DownloadError represents a failure to save an image
type DownloadError struct {
	Ref     string
	Message string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("image download failed: %s", e.Message)
}

// NewDownloadError creates a new DownloadError
func NewDownloadError(message, ref string) *DownloadError {
	return &DownloadError{Ref: ref, Message: message}
}

// IsTransportFailure reports whether err came from the network or the API
func IsTransportFailure(err error) bool {
	var apiErr *APIError
	var netErr *NetworkError
	return errors.As(err, &apiErr) || errors.As(err, &netErr) || errors.Is(err, ErrUntrustedEndpoint)
}

// IsAuthError reports whether the API rejected the credential
func IsAuthError(err error) bool {
	status := GetHTTPStatus(err)
	return status == 401 || status == 403 || errors.Is(err, ErrMissingCredential)
}

// IsRateLimitError reports whether the API throttled the request
func IsRateLimitError(err error) bool {
	return GetHTTPStatus(err) == 429
}

// IsNetworkError reports whether the request failed before a reply
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsPreflight reports errors raised before anything is sent or appended
func IsPreflight(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrCapacityExceeded)
}

// GetHTTPStatus extracts the HTTP status from an APIError, or 0
func GetHTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// GetEndpoint extracts the endpoint from structured errors
func GetEndpoint(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Endpoint
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Endpoint
	}
	return ""
}

// Hint returns a short suggestion for the user, or ""
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "Run 'imagestudio config set-key <key>' to store your OpenRouter API key"
	case IsAuthError(err):
		return "The API rejected your key. Check it in settings"
	case IsRateLimitError(err):
		return "Rate limited. Wait a moment or pick a different model"
	case IsNetworkError(err):
		return "Check your internet connection and try again"
	case errors.Is(err, ErrCapacityExceeded):
		return "Remove an attachment first"
	case errors.Is(err, ErrInvalidAttachment):
		return "Only jpeg, png, gif and webp images can be attached"
	}
	return ""
}
