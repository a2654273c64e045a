package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"live-dashboard/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type DashboardError struct {
	Message string
	Cause   error
}

func (e *DashboardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DashboardError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ DashboardError }
type FetchError struct{ DashboardError }
type PayloadError struct{ DashboardError }
type ConnectionError struct{ DashboardError }

// NewFetchError wraps a failed pull request.
func NewFetchError(operation string, cause error) error {
	return &FetchError{DashboardError{Message: fmt.Sprintf("%s failed", operation), Cause: cause}}
}

// NewPayloadError wraps a response or frame that could not be decoded.
func NewPayloadError(what string, cause error) error {
	return &PayloadError{DashboardError{Message: fmt.Sprintf("malformed %s", what), Cause: cause}}
}

// NewConnectionError wraps a lost or refused push connection.
func NewConnectionError(target string, cause error) error {
	return &ConnectionError{DashboardError{Message: fmt.Sprintf("connection to %s lost", target), Cause: cause}}
}

// NewConfigurationError wraps an invalid setting.
func NewConfigurationError(message string) error {
	return &ConfigurationError{DashboardError{Message: message}}
}

// IsFetchError reports whether err carries a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsPayloadError reports whether err carries a PayloadError.
func IsPayloadError(err error) bool {
	var pe *PayloadError
	return errors.As(err, &pe)
}

// -----------------------------------------------------------------------------
// Reconnect Logic
// -----------------------------------------------------------------------------

// RetryWithFixedDelay runs fn until ctx is cancelled, waiting delay after every
// return. There is no backoff and no attempt limit. fn receives the 1-based
// attempt number.
func RetryWithFixedDelay(ctx context.Context, delay time.Duration, fn func(ctx context.Context, attempt int) error, onError func(attempt int, err error)) {
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return
		}

		err := fn(ctx, attempt)
		if ctx.Err() != nil {
			return
		}
		if err != nil && onError != nil {
			onError(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger     *logger.Logger
	ErrorCount int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Handle logs err with the severity its type deserves and returns whether
// anything was handled. Malformed payloads are expected noise and stay at DEBUG.
func (e *ErrorHandler) Handle(err error, context string) bool {
	if err == nil {
		return false
	}
	e.ErrorCount++

	switch {
	case IsPayloadError(err):
		e.Logger.Debug("Skipped payload in %s: %v", context, err)
	case IsFetchError(err):
		e.Logger.Warning("Error in %s: %v", context, err)
	default:
		e.Logger.Error("Error in %s: %v", context, err)
	}
	return true
}
