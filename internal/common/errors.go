package common

import (
	"errors"
	"fmt"
)

// Common error types used across the application
var (
	// ErrRestrictedPage indicates the page URL uses a restricted/internal
	// scheme that must never be captured. This is an expected skip.
	ErrRestrictedPage = errors.New("restricted page")
	// ErrAgentUnreachable indicates the in-page agent could not be made
	// responsive after all injection attempts.
	ErrAgentUnreachable = errors.New("agent unreachable")
	// ErrRequestTimeout indicates an agent request timed out
	ErrRequestTimeout = errors.New("request timed out")
	// ErrChannelGone indicates the page or its message channel no longer exists
	ErrChannelGone = errors.New("message channel gone")
	// ErrPageNotFound indicates a page handle no longer resolves to a live page
	ErrPageNotFound = errors.New("page not found")
	// ErrCaptureFailed indicates a single capture kind failed
	ErrCaptureFailed = errors.New("capture failed")
	// ErrInvalidConfiguration indicates configuration issues
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// WrapError wraps an error with additional context information
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context information
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// CaptureKindError records the failure of a single capture kind without
// aborting its siblings.
type CaptureKindError struct {
	Kind    string
	Reason  string
	Wrapped error
}

func (e *CaptureKindError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("capture kind '%s' failed: %s: %v", e.Kind, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("capture kind '%s' failed: %s", e.Kind, e.Reason)
}

func (e *CaptureKindError) Unwrap() error {
	return e.Wrapped
}

// NewCaptureKindError creates a new capture kind error
func NewCaptureKindError(kind, reason string, wrapped error) *CaptureKindError {
	return &CaptureKindError{
		Kind:    kind,
		Reason:  reason,
		Wrapped: wrapped,
	}
}

// TransportError represents a failure of the page message channel
type TransportError struct {
	Action  string
	Reason  string
	Wrapped error
}

func (e *TransportError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("transport error for action '%s': %s: %v", e.Action, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("transport error for action '%s': %s", e.Action, e.Reason)
}

func (e *TransportError) Unwrap() error {
	return e.Wrapped
}

// NewTransportError creates a new transport error
func NewTransportError(action, reason string, wrapped error) *TransportError {
	return &TransportError{
		Action:  action,
		Reason:  reason,
		Wrapped: wrapped,
	}
}
