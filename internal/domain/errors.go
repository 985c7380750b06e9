package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for lookups and provider selection.
var (
	// ErrNotFound indicates a history record does not exist (or was deleted).
	ErrNotFound = errors.New("record not found")
	// ErrProviderNotFound indicates an explicitly requested provider is not registered.
	ErrProviderNotFound = errors.New("provider not registered")
)

// ErrorClass distinguishes failures that are worth retrying from those that are not.
type ErrorClass string

const (
	// ErrorTransient marks failures caused by temporary conditions (network
	// blips, upstream rate limits, 5xx responses).
	ErrorTransient ErrorClass = "transient"
	// ErrorPermanent marks failures that will not resolve on retry (bad
	// credentials, malformed requests, 4xx responses).
	ErrorPermanent ErrorClass = "permanent"
)

// InitializationError reports that a provider could not start. The provider
// stays in the Error state until Initialize is attempted again.
type InitializationError struct {
	Provider string
	Err      error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("provider %s failed to initialize: %v", e.Provider, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// ProviderError is a call-level provider failure carrying the retry classification.
type ProviderError struct {
	Provider string
	Class    ErrorClass
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s failure: %v", e.Provider, e.Class, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *ProviderError) Transient() bool { return e.Class == ErrorTransient }

// NewTransientError wraps err as a retryable provider failure.
func NewTransientError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Class: ErrorTransient, Err: err}
}

// NewPermanentError wraps err as a non-retryable provider failure.
func NewPermanentError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Class: ErrorPermanent, Err: err}
}

// RateLimitError is an admission denial from the rate limiter. Callers apply
// backoff and retry; the limiter never queues.
type RateLimitError struct {
	Provider string
	Limit    int
	Window   time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for provider %s (%d per %s)", e.Provider, e.Limit, e.Window)
}

// TimeoutError reports that the overall deadline for a request elapsed,
// regardless of remaining retry budget.
type TimeoutError struct {
	Op      string
	Elapsed time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s: %v", e.Op, e.Elapsed, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsRetryable reports whether err should consume retry budget. Only transient
// provider failures and rate-limit denials qualify.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	var rle *RateLimitError
	return errors.As(err, &rle)
}
