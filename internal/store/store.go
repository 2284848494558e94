// internal/store/store.go
package store

import (
	"context"
	"time"
)

// Store is the coordination store shared by every lock participant.
// Implementations must make SetNX, MSetNX and CompareAndDelete atomic on the
// server side; callers never hold in-process state about lock ownership.
type Store interface {
	// SetNX sets key to value only if it is absent, with the given expiry.
	// A zero ttl stores the key without expiry.
	// Returns false without error when the key already exists.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// MSetNX sets every key of values only if none of them exists.
	// No expiry is installed.
	MSetNX(ctx context.Context, values map[string]string) (bool, error)

	// Expire installs or refreshes the expiry of an existing key.
	// Returns false when the key does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Get returns the value stored at key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// CompareAndDelete removes key only if it still holds expected.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)

	// Close releases resources held by the store
	Close() error

	// GetConfig returns the current store configuration
	GetConfig() StoreConfig
}
