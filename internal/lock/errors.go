// internal/lock/errors.go
package lock

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned by constructors given an unusable configuration.
	ErrInvalidConfig = errors.New("invalid lock configuration")
	// ErrUnknownLock is returned when a named lock is not defined.
	ErrUnknownLock = errors.New("unknown lock")
)

// BusyError is returned by Do when the lock is held by someone else.
type BusyError struct {
	Lock    string
	Message string
}

func (e *BusyError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("lock %s is busy", e.Lock)
	}
	return e.Message
}

// IsBusy reports whether err carries a *BusyError.
func IsBusy(err error) bool {
	var busy *BusyError
	return errors.As(err, &busy)
}
