// Package util provides utility functions for the storefront client.
package util

import (
	"github.com/google/uuid"
)

// NewSessionID returns a random RFC4122 v4 UUID used as an opaque chat
// session token.
func NewSessionID() string {
	return uuid.NewString()
}

// NewMessageID returns a unique id for a locally rendered chat message.
func NewMessageID() string {
	return uuid.New().String()
}
