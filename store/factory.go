package store

import (
	"context"
	"fmt"

	"shopassist/domain"
)

// NewStore constructs a domain.SessionStore by kind: "memory", "file" or "redis".
// For file store, location is the file path; for redis it is a redis:// URL;
// for memory it is ignored.
func NewStore(ctx context.Context, kind, location string) (domain.SessionStore, error) {
	switch kind {
	case "memory", "mem":
		return NewInMemoryStore(), nil
	case "file":
		if location == "" {
			return nil, fmt.Errorf("file path required for file store")
		}
		return NewFileStore(location)
	case "redis":
		if location == "" {
			return nil, fmt.Errorf("redis url required for redis store")
		}
		return NewRedisStore(ctx, location)
	default:
		return nil, fmt.Errorf("unknown store kind: %s", kind)
	}
}
