// internal/store/scylladb/scylladbconfig_test.go
package scylladb

import (
	"testing"

	"github.com/avivl/lockkeeper/internal/store"
	"github.com/stretchr/testify/assert"
)

func validConfig() *ScyllaDBConfig {
	return &ScyllaDBConfig{
		BaseStoreConfig: store.BaseStoreConfig{TableName: "test-table"},
		Host:            "localhost",
		Port:            9042,
		Keyspace:        "test-keyspace",
		Consistency:     "CONSISTENCY_QUORUM",
	}
}

func TestScyllaDBConfig(t *testing.T) {
	t.Run("GetTableName", func(t *testing.T) {
		assert.Equal(t, "test-table", validConfig().GetTableName())
	})

	t.Run("GetEndpoints_Explicit", func(t *testing.T) {
		cfg := validConfig()
		cfg.Endpoints = []string{"endpoint1", "endpoint2"}
		assert.Equal(t, []string{"endpoint1", "endpoint2"}, cfg.GetEndpoints())
	})

	t.Run("GetEndpoints_FromHost", func(t *testing.T) {
		assert.Equal(t, []string{"localhost:9042"}, validConfig().GetEndpoints())
	})

	t.Run("GetBucket_Default", func(t *testing.T) {
		assert.Equal(t, "locks", validConfig().GetBucket())
	})

	t.Run("Validate_Success", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	invalid := map[string]func(c *ScyllaDBConfig){
		"Missing_Host":        func(c *ScyllaDBConfig) { c.Host = "" },
		"Invalid_Port":        func(c *ScyllaDBConfig) { c.Port = 0 },
		"Missing_Keyspace":    func(c *ScyllaDBConfig) { c.Keyspace = "" },
		"Missing_Table":       func(c *ScyllaDBConfig) { c.TableName = "" },
		"Missing_Consistency": func(c *ScyllaDBConfig) { c.Consistency = "" },
		"Negative_RF":         func(c *ScyllaDBConfig) { c.ReplicationFactor = -1 },
	}
	for name, mutate := range invalid {
		t.Run("Validate_"+name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("Validate_EndpointsReplaceHost", func(t *testing.T) {
		cfg := validConfig()
		cfg.Host = ""
		cfg.Port = 0
		cfg.Endpoints = []string{"scylla-1:9042"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("NewScyllaDBConfig", func(t *testing.T) {
		cfg := NewScyllaDBConfig()
		assert.Equal(t, "127.0.0.1", cfg.Host)
		assert.Equal(t, int32(9042), cfg.Port)
		assert.Equal(t, "lockkeeper", cfg.Keyspace)
		assert.Equal(t, "locks", cfg.TableName)
		assert.Equal(t, "CONSISTENCY_QUORUM", cfg.Consistency)
		assert.Equal(t, []string{"localhost:9042"}, cfg.Endpoints)
		assert.Equal(t, store.DefaultOpTimeout, cfg.GetOpTimeout())
		assert.NoError(t, cfg.Validate())
	})
}
