// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/avivl/lockkeeper/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redisConfigYAML = `
serverAddress: "0.0.0.0:8080"
backend:
  type: "redis"
redis:
  host: "redis.internal"
  port: 6380
  db: 2
  opTimeout: "2s"
locks:
  - name: "vm"
    prefix: "vm-lock"
    errorMessage: "vm is being modified"
    ttl: 60
  - name: "datastore"
    ttl: 120
logger:
  level: "LOG_LEVELS_DEBUGLEVEL"
observability:
  serviceName: "lockkeeper-test"
  serviceVersion: "1.2.3"
  environment: "test"
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("Load From Directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, redisConfigYAML)

		loader, cfg, err := LoadConfig(dir, nil)
		require.NoError(t, err)
		require.NotNil(t, loader)

		assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress)
		assert.Equal(t, BackendRedis, cfg.Backend.Type)
		require.NotNil(t, cfg.Redis)
		assert.Equal(t, "redis.internal", cfg.Redis.Host)
		assert.Equal(t, 6380, cfg.Redis.Port)
		assert.Equal(t, 2, cfg.Redis.DB)
		assert.Equal(t, 2*time.Second, cfg.Redis.OpTimeout)
		assert.Equal(t, observability.LogLevelDebug, cfg.Logger.Level)
		assert.Equal(t, "lockkeeper-test", cfg.Observability.ServiceName)
		assert.Same(t, cfg, loader.GetCurrentConfig())
		assert.Equal(t, filepath.Join(dir, "config.yaml"), loader.ConfigFileUsed())

		require.Len(t, cfg.Locks, 2)
		defs := cfg.Definitions()
		assert.Equal(t, "vm-lock", defs[0].Prefix)
		assert.Equal(t, "vm is being modified", defs[0].ErrorMessage)
		assert.Equal(t, time.Minute, defs[0].TTL)
		assert.Equal(t, "datastore", defs[1].Prefix, "prefix defaults to the name")
		assert.Equal(t, 2*time.Minute, defs[1].TTL)

		assert.Same(t, cfg.Redis, cfg.StoreConfig())
	})

	t.Run("Load From File Path", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte(redisConfigYAML), 0644))

		loader, cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, path, loader.ConfigFileUsed())
		assert.Equal(t, "redis.internal", cfg.Redis.Host)
	})

	t.Run("Defaults Without File", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)

		loader, cfg, err := LoadConfig(dir, nil)
		require.NoError(t, err)
		assert.Empty(t, loader.ConfigFileUsed())

		assert.Equal(t, "localhost:5050", cfg.ServerAddress)
		assert.Equal(t, BackendRedis, cfg.Backend.Type)
		assert.Equal(t, "localhost", cfg.Redis.Host)
		assert.Equal(t, 6379, cfg.Redis.Port)
		assert.Equal(t, "us-west-2", cfg.DynamoDB.Region)
		assert.Equal(t, "lockkeeper", cfg.ScyllaDB.Keyspace)
		assert.Equal(t, observability.LogLevelInfo, cfg.Logger.Level)
		assert.Equal(t, "lockkeeper", cfg.Observability.ServiceName)
		assert.Empty(t, cfg.Observability.OTelEndpoint)

		require.Len(t, cfg.Locks, 1)
		assert.Equal(t, "default", cfg.Locks[0].Name)
		assert.Equal(t, 30, cfg.Locks[0].TTL)
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, redisConfigYAML)

		t.Setenv("LOCKKEEPER_SERVERADDRESS", "127.0.0.1:9999")
		t.Setenv("LOCKKEEPER_REDIS_HOST", "redis-from-env")
		t.Setenv("LOCKKEEPER_BACKEND_TYPE", "memory")

		_, cfg, err := LoadConfig(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9999", cfg.ServerAddress)
		assert.Equal(t, "redis-from-env", cfg.Redis.Host)
		assert.Equal(t, BackendMemory, cfg.Backend.Type)
		assert.IsType(t, &memory.MemoryConfig{}, cfg.StoreConfig())
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "backend: [unclosed")

		_, _, err := LoadConfig(dir, nil)
		assert.Error(t, err)
	})

	t.Run("Invalid Configuration", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "backend:\n  type: \"etcd\"\n")

		_, _, err := LoadConfig(dir, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported backend type")
	})
}

func TestConfigWatcher(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, redisConfigYAML)

	loader, _, err := LoadConfig(dir, nil)
	require.NoError(t, err)
	require.True(t, loader.Watch())
	require.True(t, loader.Watch(), "a second call keeps the single watch")

	updates := make(chan *GlobalConfig, 4)
	loader.AddWatcher(func(cfg *GlobalConfig) {
		select {
		case updates <- cfg:
		default:
		}
	})

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	updated := `
serverAddress: "0.0.0.0:9090"
backend:
  type: "memory"
locks:
  - name: "vm"
    ttl: 10
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))

	// A truncate and a write may arrive as separate events.
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case cfg := <-updates:
			if cfg.ServerAddress != "0.0.0.0:9090" {
				continue
			}
			assert.Equal(t, BackendMemory, cfg.Backend.Type)
			require.Len(t, cfg.Locks, 1)
			assert.Equal(t, 10, cfg.Locks[0].TTL)
			done = true
		case <-timeout:
			t.Fatal("watcher was not notified")
		}
	}

	assert.Eventually(t, func() bool {
		return loader.GetCurrentConfig().ServerAddress == "0.0.0.0:9090"
	}, time.Second, 10*time.Millisecond)
	assert.NoError(t, loader.GetLastError())
}

func TestLoadConfigWithoutWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, redisConfigYAML)

	loader, cfg, err := LoadConfig(dir, nil)
	require.NoError(t, err)

	notified := make(chan struct{}, 1)
	loader.AddWatcher(func(*GlobalConfig) {
		select {
		case notified <- struct{}{}:
		default:
		}
	})

	require.NoError(t, os.WriteFile(path, []byte("serverAddress: \"0.0.0.0:9090\"\nbackend:\n  type: \"memory\"\n"), 0644))

	select {
	case <-notified:
		t.Fatal("watchers fired without Watch")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, cfg.ServerAddress, loader.GetCurrentConfig().ServerAddress)
}

func TestWatchWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	loader, _, err := LoadConfig(t.TempDir(), nil)
	require.NoError(t, err)
	assert.False(t, loader.Watch())
}

func TestLoadConfigAlternateFileName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lockkeeper.yml"), []byte("backend:\n  type: \"memory\"\n"), 0644))

	loader, cfg, err := LoadConfig(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend.Type)
	assert.Equal(t, filepath.Join(dir, "lockkeeper.yml"), loader.ConfigFileUsed())
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
