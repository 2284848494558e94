// internal/store/redis/redisconfig.go
package redis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avivl/lockkeeper/internal/store"
)

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Host      string        `yaml:"host" mapstructure:"host"`
	Port      int           `yaml:"port" mapstructure:"port"`
	Password  string        `yaml:"password" mapstructure:"password"`
	DB        int           `yaml:"db" mapstructure:"db"`
	PoolSize  int           `yaml:"poolSize" mapstructure:"poolSize"`
	OpTimeout time.Duration `yaml:"opTimeout" mapstructure:"opTimeout"`
	TableName string        `yaml:"table" mapstructure:"table"`
}

// NewRedisConfig creates a new Redis configuration with default values
func NewRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:      "localhost",
		Port:      6379,
		OpTimeout: store.DefaultOpTimeout,
		TableName: "locks",
	}
}

// Validate applies defaults for unset fields and ensures the configuration is usable.
func (c *RedisConfig) Validate() error {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.OpTimeout == 0 {
		c.OpTimeout = store.DefaultOpTimeout
	}
	if c.TableName == "" {
		c.TableName = "locks"
	}

	var errs []string
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}
	if c.DB < 0 {
		errs = append(errs, "DB number must be non-negative")
	}
	if c.PoolSize < 0 {
		errs = append(errs, "pool size must be non-negative")
	}
	if c.OpTimeout < 0 {
		errs = append(errs, "operation timeout must be positive")
	}

	if len(errs) > 0 {
		return errors.New("store validation failed: " + strings.Join(errs, "; "))
	}
	return nil
}

// Addr returns the host:port pair the client dials.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// String returns a string representation of the Redis configuration
func (c *RedisConfig) String() string {
	return fmt.Sprintf("RedisConfig{Host: %s, Port: %d, DB: %d, PoolSize: %d, OpTimeout: %s}",
		c.Host, c.Port, c.DB, c.PoolSize, c.OpTimeout)
}

// Clone creates a copy of the Redis configuration
func (c *RedisConfig) Clone() *RedisConfig {
	clone := *c
	return &clone
}

// GetTableName returns the logical namespace reported for this store.
func (c *RedisConfig) GetTableName() string {
	return c.TableName
}

// GetEndpoints returns a list of Redis endpoints
func (c *RedisConfig) GetEndpoints() []string {
	if c.Host == "" {
		return []string{}
	}
	return []string{c.Addr()}
}
