// internal/store/scylladb/scylladbconfig.go
package scylladb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/avivl/lockkeeper/internal/store"
)

type ScyllaDBConfig struct {
	store.BaseStoreConfig `yaml:",inline" mapstructure:",squash"`
	Host                  string   `yaml:"host" mapstructure:"host"`
	Port                  int32    `yaml:"port" mapstructure:"port"`
	Keyspace              string   `yaml:"keyspace" mapstructure:"keyspace"`
	Consistency           string   `yaml:"consistency" mapstructure:"consistency"`
	ReplicationFactor     int      `yaml:"replicationFactor" mapstructure:"replicationFactor"`
	Bucket                string   `yaml:"bucket" mapstructure:"bucket"`
	Endpoints             []string `yaml:"endpoints" mapstructure:"endpoints"`
}

var validConsistencies = []string{"CONSISTENCY_QUORUM", "CONSISTENCY_LOCAL_QUORUM", "CONSISTENCY_ONE", "CONSISTENCY_ALL"}

// NewScyllaDBConfig creates a new ScyllaDB configuration with default values
func NewScyllaDBConfig() *ScyllaDBConfig {
	return &ScyllaDBConfig{
		BaseStoreConfig: store.BaseStoreConfig{
			TableName: "locks",
			OpTimeout: store.DefaultOpTimeout,
		},
		Host:              "127.0.0.1",
		Port:              9042,
		Keyspace:          "lockkeeper",
		Consistency:       "CONSISTENCY_QUORUM",
		ReplicationFactor: 3,
		Bucket:            "locks",
		Endpoints:         []string{"localhost:9042"},
	}
}

// GetEndpoints returns the contact points, falling back to host:port.
func (c *ScyllaDBConfig) GetEndpoints() []string {
	if len(c.Endpoints) > 0 {
		return c.Endpoints
	}
	if c.Host == "" {
		return []string{}
	}
	return []string{fmt.Sprintf("%s:%d", c.Host, c.Port)}
}

// GetBucket returns the partition that holds every lock record.
func (c *ScyllaDBConfig) GetBucket() string {
	if c.Bucket == "" {
		return "locks"
	}
	return c.Bucket
}

func (c *ScyllaDBConfig) Validate() error {
	var errs []string

	if len(c.Endpoints) == 0 {
		if c.Host == "" {
			errs = append(errs, "host or endpoints are required")
		}
		if c.Port <= 0 || c.Port > 65535 {
			errs = append(errs, "port must be between 1 and 65535")
		}
	}
	if c.Keyspace == "" {
		errs = append(errs, "keyspace is required")
	}
	if c.TableName == "" {
		errs = append(errs, "table is required")
	}
	if c.ReplicationFactor < 0 {
		errs = append(errs, "replication factor must be non-negative")
	}
	if !isValidConsistency(c.Consistency) {
		errs = append(errs, fmt.Sprintf("consistency must be one of %s", strings.Join(validConsistencies, ", ")))
	}

	if len(errs) > 0 {
		return errors.New("store validation failed: " + strings.Join(errs, "; "))
	}
	return nil
}

func isValidConsistency(c string) bool {
	for _, v := range validConsistencies {
		if c == v {
			return true
		}
	}
	return false
}
