// internal/config/types.go
package config

import (
	"time"

	"github.com/avivl/lockkeeper/internal/lock"
	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/avivl/lockkeeper/internal/store"
	"github.com/avivl/lockkeeper/internal/store/dynamodb"
	"github.com/avivl/lockkeeper/internal/store/memory"
	"github.com/avivl/lockkeeper/internal/store/redis"
	"github.com/avivl/lockkeeper/internal/store/scylladb"
)

// Backend names accepted in backend.type.
const (
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendScyllaDB = "scylladb"
	BackendMemory   = "memory"
)

// GlobalConfig represents the complete application configuration
type GlobalConfig struct {
	ServerAddress string                     `yaml:"serverAddress" mapstructure:"serverAddress"`
	Backend       BackendConfig              `yaml:"backend" mapstructure:"backend"`
	Redis         *redis.RedisConfig         `yaml:"redis" mapstructure:"redis"`
	DynamoDB      *dynamodb.DynamoDBConfig   `yaml:"dynamodb" mapstructure:"dynamodb"`
	ScyllaDB      *scylladb.ScyllaDBConfig   `yaml:"scylladb" mapstructure:"scylladb"`
	Memory        *memory.MemoryConfig       `yaml:"memory" mapstructure:"memory"`
	Locks         []LockConfig               `yaml:"locks" mapstructure:"locks"`
	Logger        observability.LoggerConfig `yaml:"logger" mapstructure:"logger"`
	Observability observability.Config       `yaml:"observability" mapstructure:"observability"`
}

// BackendConfig represents the backend configuration section
type BackendConfig struct {
	Type string `yaml:"type" mapstructure:"type"`
}

// LockConfig defines one named lock.
type LockConfig struct {
	Name         string `yaml:"name" mapstructure:"name"`
	Prefix       string `yaml:"prefix" mapstructure:"prefix"`
	ErrorMessage string `yaml:"errorMessage" mapstructure:"errorMessage"`
	// TTL in seconds.
	TTL int `yaml:"ttl" mapstructure:"ttl"`
}

// RootConfig is the subset of the file DetectBackendType reads.
type RootConfig struct {
	Backend BackendConfig `yaml:"backend"`
}

// Definition converts the entry to a lock definition. The prefix defaults to the name.
func (c LockConfig) Definition() lock.Definition {
	prefix := c.Prefix
	if prefix == "" {
		prefix = c.Name
	}
	return lock.Definition{
		Name:         c.Name,
		Prefix:       prefix,
		ErrorMessage: c.ErrorMessage,
		TTL:          time.Duration(c.TTL) * time.Second,
	}
}

// Definitions returns the lock definitions of every configured lock.
func (c *GlobalConfig) Definitions() []lock.Definition {
	defs := make([]lock.Definition, 0, len(c.Locks))
	for _, l := range c.Locks {
		defs = append(defs, l.Definition())
	}
	return defs
}

// StoreConfig returns the section of the selected backend, or nil when it is missing.
func (c *GlobalConfig) StoreConfig() store.StoreConfig {
	switch normalizeBackendType(c.Backend.Type) {
	case BackendRedis:
		if c.Redis != nil {
			return c.Redis
		}
	case BackendDynamoDB:
		if c.DynamoDB != nil {
			return c.DynamoDB
		}
	case BackendScyllaDB:
		if c.ScyllaDB != nil {
			return c.ScyllaDB
		}
	case BackendMemory:
		if c.Memory != nil {
			return c.Memory
		}
		return &memory.MemoryConfig{}
	}
	return nil
}
