package client

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrUnknownEndpoint is wrapped by ConfigurationError for unresolved routes.
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrMissingCredentials is wrapped by ConfigurationError when api_user or api_key is empty.
	ErrMissingCredentials = errors.New("api_user and api_key are required")

	// ErrNoIdentity is wrapped by ConfigurationError when no sender identity
	// was given and none exists on the account.
	ErrNoIdentity = errors.New("no sender identity available")

	// ErrNoRecipients is returned when a batch upload has nothing to send.
	ErrNoRecipients = errors.New("no recipients given")
)

// ErrorClass represents a classification of transport failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassParse represents bodies that are neither JSON nor an HTML error page.
	ErrorClassParse ErrorClass = "parse"
)

// ConfigurationError reports a problem the caller must fix: an unknown
// endpoint, missing credentials, or an unresolved required field.
// It is never retried and no HTTP request is made.
type ConfigurationError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sendgrid configuration error (%s): %v", e.Field, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TransportError reports a failed exchange with SendGrid.
type TransportError struct {
	URL        string
	StatusCode int
	ErrorClass ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("sendgrid %s error (status %d) for %s: %v",
			e.ErrorClass, e.StatusCode, e.URL, e.Err)
	}
	return fmt.Sprintf("sendgrid %s error for %s: %v", e.ErrorClass, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError is a business-level error reported inside a successful
// HTTP response. The dispatcher never returns it as an error; callers get it
// from Result.AppError.
type ApplicationError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ApplicationError) Error() string {
	return fmt.Sprintf("sendgrid %s rejected request (status %d): %s",
		e.Endpoint, e.StatusCode, e.Message)
}

// withoutRecipientsMarker is the text SendGrid returns while a freshly
// created list is not yet visible to the newsletter subsystem.
const withoutRecipientsMarker = "without recipients"

// IsWithoutRecipients reports whether err is the application error SendGrid
// returns when a list is attached to a newsletter before the list is visible.
// SendGrid exposes no error code for this condition, only message text.
func IsWithoutRecipients(err error) bool {
	var appErr *ApplicationError
	if !errors.As(err, &appErr) || appErr == nil {
		return false
	}
	return strings.Contains(appErr.Message, withoutRecipientsMarker)
}
