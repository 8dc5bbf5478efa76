// Package errors provides standardized error handling for the query resolver.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Sentinel Errors
// ==========================

var (
	// ErrSessionNotFound is returned when a clarification answer references
	// an unknown or expired session token.
	ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")

	// ErrSessionBusy is returned when a second answer arrives for a session
	// that already has a resolution in flight.
	ErrSessionBusy = errors.New("SESSION_BUSY")

	// ErrCatalogInvalid is returned when a catalog document fails
	// validation at load time. The catalog keeps serving its previous
	// snapshot; at startup this error is fatal.
	ErrCatalogInvalid = errors.New("CATALOG_INVALID")
)

// ==========================
// 2. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionBusy     ErrorCode = "SESSION_BUSY"
	ErrCodeSessionStore    ErrorCode = "SESSION_STORE_FAILED"

	ErrCodeCatalogInvalid    ErrorCode = "CATALOG_INVALID"
	ErrCodeCatalogLoadFailed ErrorCode = "CATALOG_LOAD_FAILED"

	ErrCodeQueryRenderFailed ErrorCode = "QUERY_RENDER_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap ties coded errors back to their sentinels so callers can use
// errors.Is without knowing about StandardError.
func (e *StandardError) Unwrap() error {
	switch e.Code {
	case ErrCodeSessionNotFound:
		return ErrSessionNotFound
	case ErrCodeSessionBusy:
		return ErrSessionBusy
	case ErrCodeCatalogInvalid:
		return ErrCatalogInvalid
	default:
		return nil
	}
}

// ==========================
// 3. Error Constructors
// ==========================

// NewSessionNotFoundError creates a non-retryable session error. The caller
// must restart the query with a fresh submit.
func NewSessionNotFoundError(token string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Unknown or expired session token",
		Details:   fmt.Sprintf("token: %s", token),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionBusyError creates a retryable concurrency error for a session
// with an answer already in flight.
func NewSessionBusyError(token string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionBusy,
		Message:   "Session already has a resolution in flight",
		Details:   fmt.Sprintf("token: %s", token),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreError creates a retryable session storage error.
func NewSessionStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStore,
		Message:   "Session store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogInvalidError creates a non-retryable configuration error.
// Duplicate names or synonyms across the dimension and metric sets abort
// the catalog load rather than silently shadowing an entry.
func NewCatalogInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogInvalid,
		Message:   "Catalog configuration is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogLoadFailedError creates a retryable catalog source error.
func NewCatalogLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogLoadFailed,
		Message:   "Failed to read catalog source",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryRenderFailedError creates a non-retryable SQL rendering error.
func NewQueryRenderFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryRenderFailed,
		Message:   "Structured query could not be rendered",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
