// internal/config/validator.go
package config

import (
	"errors"
	"fmt"
)

// Validate checks every section the process will use.
func (c *GlobalConfig) Validate() error {
	if c == nil {
		return errors.New("configuration cannot be nil")
	}
	if c.ServerAddress == "" {
		return errors.New("server address is required")
	}

	switch normalizeBackendType(c.Backend.Type) {
	case BackendRedis, BackendDynamoDB, BackendScyllaDB, BackendMemory:
	case "":
		return errors.New("backend type is required")
	default:
		return fmt.Errorf("unsupported backend type %q", c.Backend.Type)
	}

	storeConfig := c.StoreConfig()
	if storeConfig == nil {
		return fmt.Errorf("%s configuration section is missing", c.Backend.Type)
	}
	if err := storeConfig.Validate(); err != nil {
		return fmt.Errorf("store configuration error: %w", err)
	}

	if err := validateLocks(c.Locks); err != nil {
		return err
	}

	if c.Observability.ServiceName == "" {
		return errors.New("service name is required")
	}
	return nil
}

func validateLocks(locks []LockConfig) error {
	seen := make(map[string]struct{}, len(locks))
	for i, l := range locks {
		if l.Name == "" {
			return fmt.Errorf("locks[%d]: name is required", i)
		}
		if _, dup := seen[l.Name]; dup {
			return fmt.Errorf("locks[%d]: duplicate lock name %q", i, l.Name)
		}
		seen[l.Name] = struct{}{}
		if l.TTL <= 0 {
			return fmt.Errorf("lock %q: ttl must be positive, got %d", l.Name, l.TTL)
		}
	}
	return nil
}
