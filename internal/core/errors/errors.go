// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Content errors.
var (
	// ErrUnsupportedItem indicates a content item type that cannot be fingerprinted.
	ErrUnsupportedItem = errors.New("unsupported content item")
)

// Scope errors.
var (
	// ErrUnknownScope indicates a scope that is not in the accept-list.
	ErrUnknownScope = errors.New("unknown scope")
)

// Image errors.
var (
	// ErrImageNotFound indicates no stored payload exists for an image id.
	ErrImageNotFound = errors.New("image not found")

	// ErrImageTooLarge indicates an image exceeds the configured size ceiling.
	ErrImageTooLarge = errors.New("image too large")

	// ErrHTTPStatusNotOK indicates an HTTP response with a non-200 status code.
	ErrHTTPStatusNotOK = errors.New("HTTP status not OK")
)

// Send errors.
var (
	// ErrNothingToSend indicates a resend whose content resolved to no sendable parts.
	ErrNothingToSend = errors.New("nothing to send")
)
