package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestTransportError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *TransportError
		expected string
	}{
		{
			name: "with status",
			err: &TransportError{
				URL:        "https://api.sendgrid.com/api/newsletter/get.json",
				StatusCode: 502,
				ErrorClass: ErrorClassServer,
				Err:        errors.New("502 Bad Gateway"),
			},
			expected: "sendgrid server error (status 502) for https://api.sendgrid.com/api/newsletter/get.json: 502 Bad Gateway",
		},
		{
			name: "network error without status",
			err: &TransportError{
				URL:        "https://api.sendgrid.com/x",
				ErrorClass: ErrorClassNetwork,
				Err:        errors.New("connection refused"),
			},
			expected: "sendgrid network error for https://api.sendgrid.com/x: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	wrapped := errors.New("wrapped error")
	err := &TransportError{ErrorClass: ErrorClassNetwork, Err: wrapped}

	if !errors.Is(err, wrapped) {
		t.Error("errors.Is should work with wrapped error")
	}
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Field: "identity", Err: ErrNoIdentity}

	if got := err.Error(); got != "sendgrid configuration error (identity): no sender identity available" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrNoIdentity) {
		t.Error("errors.Is should find ErrNoIdentity")
	}
}

func TestApplicationError_Error(t *testing.T) {
	err := &ApplicationError{Endpoint: "lists/add", StatusCode: 200, Message: "List already exists"}
	want := "sendgrid lists/add rejected request (status 200): List already exists"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsWithoutRecipients(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "marker present",
			err:      &ApplicationError{Message: "Newsletter cannot be sent without recipients"},
			expected: true,
		},
		{
			name:     "wrapped",
			err:      fmt.Errorf("attach: %w", &ApplicationError{Message: "newsletter without recipients"}),
			expected: true,
		},
		{
			name:     "other application error",
			err:      &ApplicationError{Message: "List does not exist"},
			expected: false,
		},
		{
			name:     "transport error",
			err:      &TransportError{Err: errors.New("without recipients")},
			expected: false,
		},
		{
			name:     "nil",
			err:      nil,
			expected: false,
		},
		{
			name:     "typed nil",
			err:      (*ApplicationError)(nil),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithoutRecipients(tt.err); got != tt.expected {
				t.Errorf("IsWithoutRecipients() = %v, want %v", got, tt.expected)
			}
		})
	}
}
