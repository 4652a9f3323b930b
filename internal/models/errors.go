package models

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotFound is returned when a model id is not in the registry
	ErrModelNotFound = errors.New("model not found")

	// ErrProviderNotFound is returned when a provider id is not in the registry
	ErrProviderNotFound = errors.New("provider not found")

	// ErrMissingAPIKey is returned when a provider's API key variable is unset
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidRequest is returned for malformed generation requests
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrInvalidDescriptor is returned when a provider or model descriptor fails validation
	ErrInvalidDescriptor = errors.New("invalid descriptor")

	// ErrDuplicate is returned when registering an id that already exists
	ErrDuplicate = errors.New("already registered")

	// ErrUpstreamStatus is wrapped by UpstreamError
	ErrUpstreamStatus = errors.New("upstream returned non-2xx status")

	// ErrInvalidResponse is returned when an upstream reply lacks the expected shape
	ErrInvalidResponse = errors.New("invalid response format")

	// ErrUnsupportedFormat is returned when a provider cannot be called
	ErrUnsupportedFormat = errors.New("unsupported request format")
)

// UpstreamError carries a non-2xx upstream reply.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model API returned status %d from %s: %s", e.StatusCode, e.Provider, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstreamStatus
}

// InvalidResponseError builds the contract-violation error for provider.
func InvalidResponseError(provider string, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w from %s", ErrInvalidResponse, provider)
	}
	return fmt.Errorf("%w from %s: %s", ErrInvalidResponse, provider, detail)
}
