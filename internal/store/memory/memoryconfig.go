// internal/store/memory/memoryconfig.go
package memory

import "time"

// MemoryConfig configures the in-process store.
type MemoryConfig struct {
	TableName string `yaml:"table" mapstructure:"table"`

	// Now overrides the clock used to evaluate expiry. Tests only.
	Now func() time.Time `yaml:"-" mapstructure:"-"`
}

func (c *MemoryConfig) GetTableName() string {
	return c.TableName
}

func (c *MemoryConfig) GetEndpoints() []string {
	return nil
}

func (c *MemoryConfig) Validate() error {
	return nil
}
