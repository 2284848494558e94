// internal/store/storeconfig.go
package store

import "time"

// StoreConfig is implemented by every backend configuration section.
type StoreConfig interface {
	GetTableName() string
	GetEndpoints() []string
	Validate() error
}

// BaseStoreConfig holds the settings shared by the networked backends.
type BaseStoreConfig struct {
	TableName string        `yaml:"table" mapstructure:"table"`
	OpTimeout time.Duration `yaml:"opTimeout" mapstructure:"opTimeout"`
}

// DefaultOpTimeout bounds a single round-trip to the store when no timeout is configured.
const DefaultOpTimeout = 5 * time.Second

func (b *BaseStoreConfig) GetTableName() string {
	return b.TableName
}

// GetOpTimeout returns the per-operation timeout, falling back to DefaultOpTimeout.
func (b *BaseStoreConfig) GetOpTimeout() time.Duration {
	if b.OpTimeout <= 0 {
		return DefaultOpTimeout
	}
	return b.OpTimeout
}
