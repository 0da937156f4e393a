// Package domain defines error types for the storefront client.
package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrEmptyMessage is returned when a chat message is blank after trimming
	ErrEmptyMessage = errors.New("chat: message is empty")

	// ErrChatBusy is returned when a chat message is sent while another is in flight
	ErrChatBusy = errors.New("chat: a message is already being processed")
)

// ProductNotFoundError is returned when a product with the given ID is not found
type ProductNotFoundError struct {
	ProductID int
}

// Error implements the error interface for ProductNotFoundError
func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: id=%d", e.ProductID)
}

// Is allows proper error type checking with errors.Is()
func (e *ProductNotFoundError) Is(target error) bool {
	_, ok := target.(*ProductNotFoundError)
	return ok
}

// TransportError is returned when a request to the storefront API could not
// complete: network failure, timeout, or a non-2xx status.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface for TransportError
func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("transport error: op=%s, status=%d, message=%s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("transport error: op=%s, status=%d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("transport error: op=%s, err=%v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying network error, if any
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is allows proper error type checking with errors.Is()
func (e *TransportError) Is(target error) bool {
	_, ok := target.(*TransportError)
	return ok
}

// Timeout reports whether the request failed because its deadline passed
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// MalformedResponseError is returned when a 2xx response body does not have
// the expected shape
type MalformedResponseError struct {
	Op     string
	Reason string
}

// Error implements the error interface for MalformedResponseError
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: op=%s, reason=%s", e.Op, e.Reason)
}

// Is allows proper error type checking with errors.Is()
func (e *MalformedResponseError) Is(target error) bool {
	_, ok := target.(*MalformedResponseError)
	return ok
}

// UnauthorizedError is returned when the API rejects the stored credentials
type UnauthorizedError struct {
	Op string
}

// Error implements the error interface for UnauthorizedError
func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: op=%s", e.Op)
}

// Is allows proper error type checking with errors.Is()
func (e *UnauthorizedError) Is(target error) bool {
	_, ok := target.(*UnauthorizedError)
	return ok
}

// KeyNotFoundError is returned by a SessionStore when a key has no value
type KeyNotFoundError struct {
	Key string
}

// Error implements the error interface for KeyNotFoundError
func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key not found: key=%s", e.Key)
}

// Is allows proper error type checking with errors.Is()
func (e *KeyNotFoundError) Is(target error) bool {
	_, ok := target.(*KeyNotFoundError)
	return ok
}

// Helper functions for creating errors with context

// NewProductNotFoundError creates a new ProductNotFoundError
func NewProductNotFoundError(productID int) error {
	return &ProductNotFoundError{ProductID: productID}
}

// NewTransportError creates a TransportError for a failed round trip
func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// NewStatusError creates a TransportError for a non-2xx response
func NewStatusError(op string, status int, message string) error {
	return &TransportError{Op: op, StatusCode: status, Message: message}
}

// NewMalformedResponseError creates a new MalformedResponseError
func NewMalformedResponseError(op, reason string) error {
	return &MalformedResponseError{Op: op, Reason: reason}
}

// NewUnauthorizedError creates a new UnauthorizedError
func NewUnauthorizedError(op string) error {
	return &UnauthorizedError{Op: op}
}

// NewKeyNotFoundError creates a new KeyNotFoundError
func NewKeyNotFoundError(key string) error {
	return &KeyNotFoundError{Key: key}
}

// Type assertion helpers for use with errors.As()

// IsProductNotFoundError checks if an error is a ProductNotFoundError
func IsProductNotFoundError(err error) bool {
	var pnf *ProductNotFoundError
	return errors.As(err, &pnf)
}

// IsTransportError checks if an error is a TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsMalformedResponseError checks if an error is a MalformedResponseError
func IsMalformedResponseError(err error) bool {
	var mre *MalformedResponseError
	return errors.As(err, &mre)
}

// IsUnauthorizedError checks if an error is an UnauthorizedError
func IsUnauthorizedError(err error) bool {
	var ue *UnauthorizedError
	return errors.As(err, &ue)
}

// IsKeyNotFoundError checks if an error is a KeyNotFoundError
func IsKeyNotFoundError(err error) bool {
	var knf *KeyNotFoundError
	return errors.As(err, &knf)
}

// Human-readable failure categories shown in place of raw transport errors.
const (
	ReasonTimeout   = "The request timed out. Please try again."
	ReasonMalformed = "Received an unexpected response. Please try again."
	ReasonSignedOut = "Your session has expired. Please sign in again."
	ReasonGeneric   = "Failed to fetch products. Please try again."
)

// FailureReason maps an error to the category shown to the user. Malformed
// payloads are reported like transport failures: both are retryable.
func FailureReason(err error) string {
	var te *TransportError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &te) && te.Timeout():
		return ReasonTimeout
	case IsMalformedResponseError(err):
		return ReasonMalformed
	case IsUnauthorizedError(err):
		return ReasonSignedOut
	default:
		return ReasonGeneric
	}
}
