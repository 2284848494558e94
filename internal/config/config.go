// internal/config/config.go
// Package config loads, validates and watches the lockkeeper configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LOCKKEEPER_BACKEND_TYPE.
const EnvPrefix = "LOCKKEEPER"

// ConfigLoader handles loading of configurations
type ConfigLoader struct {
	v             *viper.Viper
	l             *observability.SLogger
	mu            sync.RWMutex
	watchersMu    sync.RWMutex
	watchers      []func(*GlobalConfig)
	currentConfig *GlobalConfig
	lastError     error
	watchOnce     sync.Once
}

// NewConfigLoader creates a loader for configPath, which may name a file or a
// directory holding one of configFileNames. Without either it falls back to
// config.yaml in the working directory.
func NewConfigLoader(configPath string, logger *observability.SLogger) *ConfigLoader {
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	v := viper.New()
	if file, err := resolveConfigFilePath(configPath); err == nil {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if configPath != "" {
			v.AddConfigPath(configPath)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return &ConfigLoader{v: v, l: logger}
}

// LoadConfig reads and validates the configuration. Call Watch to follow file changes.
func LoadConfig(configPath string, logger *observability.SLogger) (*ConfigLoader, *GlobalConfig, error) {
	cl := NewConfigLoader(configPath, logger)

	if err := cl.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
		cl.l.Info("No config file found, using defaults and environment variables")
	}

	cfg, err := cl.load()
	if err != nil {
		return nil, nil, err
	}

	cl.mu.Lock()
	cl.currentConfig = cfg
	cl.mu.Unlock()

	return cl, cfg, nil
}

// Watch reloads the configuration whenever the file changes and hands each valid
// result to the registered watchers. It reports false when no file was loaded.
func (cl *ConfigLoader) Watch() bool {
	if cl.v.ConfigFileUsed() == "" {
		return false
	}
	cl.watchOnce.Do(func() {
		cl.v.OnConfigChange(cl.handleConfigChange)
		cl.v.WatchConfig()
	})
	return true
}

// AddWatcher adds a callback function that will be called when configuration changes
func (cl *ConfigLoader) AddWatcher(callback func(*GlobalConfig)) {
	cl.watchersMu.Lock()
	defer cl.watchersMu.Unlock()
	cl.watchers = append(cl.watchers, callback)
}

// GetCurrentConfig returns the current configuration
func (cl *ConfigLoader) GetCurrentConfig() *GlobalConfig {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.currentConfig
}

// GetLastError returns the error of the last failed reload, nil after a successful one.
func (cl *ConfigLoader) GetLastError() error {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.lastError
}

// ConfigFileUsed returns the path of the file the configuration was read from.
func (cl *ConfigLoader) ConfigFileUsed() string {
	return cl.v.ConfigFileUsed()
}

func (cl *ConfigLoader) load() (*GlobalConfig, error) {
	cfg := &GlobalConfig{}
	if err := cl.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Backend.Type = normalizeBackendType(cfg.Backend.Type)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("serverAddress", "localhost:5050")
	v.SetDefault("backend.type", BackendRedis)

	v.SetDefault("observability.serviceName", "lockkeeper")
	v.SetDefault("observability.serviceVersion", "0.1.0")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.otelEndpoint", "")

	v.SetDefault("logger.level", string(observability.LogLevelInfo))

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 0)
	v.SetDefault("redis.opTimeout", "5s")
	v.SetDefault("redis.table", "locks")

	v.SetDefault("dynamodb.region", "us-west-2")
	v.SetDefault("dynamodb.table", "lockkeeper")
	v.SetDefault("dynamodb.endpoints", []string{})
	v.SetDefault("dynamodb.profile", "default")
	v.SetDefault("dynamodb.accessKeyId", "")
	v.SetDefault("dynamodb.secretAccessKey", "")

	v.SetDefault("scylladb.host", "127.0.0.1")
	v.SetDefault("scylladb.port", 9042)
	v.SetDefault("scylladb.keyspace", "lockkeeper")
	v.SetDefault("scylladb.table", "locks")
	v.SetDefault("scylladb.opTimeout", "5s")
	v.SetDefault("scylladb.consistency", "CONSISTENCY_QUORUM")
	v.SetDefault("scylladb.replicationFactor", 1)
	v.SetDefault("scylladb.bucket", "locks")
	v.SetDefault("scylladb.endpoints", []string{"localhost:9042"})

	v.SetDefault("memory.table", "locks")

	v.SetDefault("locks", []map[string]interface{}{
		{"name": "default", "prefix": "lock", "errorMessage": "resource is locked, try again later", "ttl": 30},
	})
}
