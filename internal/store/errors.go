// internal/store/errors.go
package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReachable is returned when the store cannot be reached or answers with a protocol error.
	ErrNotReachable = errors.New("store not reachable")
	// ErrTooManyKeys is returned when a multi-key operation exceeds what the backend can apply atomically.
	ErrTooManyKeys = errors.New("too many keys for a single atomic operation")
)

// Unreachable wraps err so that errors.Is(err, ErrNotReachable) holds.
func Unreachable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrNotReachable, err)
}

// InvalidConfigurationError is thrown when the type of the configuration is not supported by a store.
type InvalidConfigurationError struct {
	Store  string
	Config any
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration type: %T", e.Store, e.Config)
}

// UnknownConstructorError is thrown when a requested store is not register.
type UnknownConstructorError struct {
	Store string
}

func (e UnknownConstructorError) Error() string {
	return fmt.Sprintf("unknown constructor %q (forgotten import?)", e.Store)
}
