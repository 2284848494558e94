// internal/lock/config.go
package lock

import (
	"fmt"
	"sort"
	"time"
)

// KeySeparator joins a lock prefix and a resource suffix.
const KeySeparator = ":"

// MinTTL is the smallest TTL a lock accepts; batch records are stamped with whole seconds.
const MinTTL = time.Second

// Config is the immutable configuration of a lock.
type Config struct {
	// Prefix namespaces every key of this lock.
	Prefix string
	// ErrorMessage is returned to callers when the lock is held by someone else.
	ErrorMessage string
	// TTL bounds how long a record survives its holder. It must be a whole
	// number of seconds.
	TTL time.Duration
}

// Validate reports whether the configuration can be used to build a lock.
func (c Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("%w: prefix is required", ErrInvalidConfig)
	}
	if c.TTL < MinTTL {
		return fmt.Errorf("%w: ttl %s is below %s", ErrInvalidConfig, c.TTL, MinTTL)
	}
	if c.TTL%time.Second != 0 {
		return fmt.Errorf("%w: ttl %s is not a whole number of seconds", ErrInvalidConfig, c.TTL)
	}
	return nil
}

// Key returns the store key guarding suffix.
func (c Config) Key(suffix string) string {
	return c.Prefix + KeySeparator + suffix
}

// Keys returns the distinct store keys for suffixes in sorted order.
func (c Config) Keys(suffixes []string) []string {
	seen := make(map[string]struct{}, len(suffixes))
	keys := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		k := c.Key(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c Config) ttlSeconds() int64 {
	return int64(c.TTL / time.Second)
}
