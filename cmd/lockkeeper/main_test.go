// cmd/lockkeeper/main_test.go
package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/avivl/lockkeeper/internal/config"
	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/avivl/lockkeeper/internal/server"
	"github.com/avivl/lockkeeper/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memoryConfigYAML = `
backend:
  type: "memory"
locks:
  - name: "vm"
    errorMessage: "vm is busy"
    ttl: 60
logger:
  level: "LOG_LEVELS_ERRORLEVEL"
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(memoryConfigYAML), 0644))
	return path
}

func startServer(t *testing.T) string {
	t.Helper()
	cfg := &config.GlobalConfig{
		ServerAddress: "127.0.0.1:0",
		Backend:       config.BackendConfig{Type: config.BackendMemory},
		Memory:        &memory.MemoryConfig{},
		Locks:         []config.LockConfig{{Name: "vm", ErrorMessage: "vm is busy", TTL: 60}},
		Observability: observability.Config{ServiceName: "lockkeeper"},
	}
	s, err := server.NewServer(cfg, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background(), server.NewStoreFromConfig))

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Stop(context.Background())
	})
	return ts.URL
}

func TestBackendsCommand(t *testing.T) {
	out, err := run(t, "--config", t.TempDir(), "backends")
	require.NoError(t, err)
	assert.Equal(t, "dynamodb\nmemory\nredis\nscylladb\n", out)

	cfgPath := writeConfig(t)
	out, err = run(t, "--config", cfgPath, "backends")
	require.NoError(t, err)
	assert.Equal(t, "  dynamodb\n* memory\n  redis\n  scylladb\n", out)

	t.Setenv("LOCKKEEPER_BACKEND_TYPE", "dynamo")
	out, err = run(t, "--config", cfgPath, "backends")
	require.NoError(t, err)
	assert.Equal(t, "* dynamodb\n  memory\n  redis\n  scylladb\n", out)
}

func TestLocalCommands(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "acquire", "vm", "host-1")
	require.NoError(t, err)
	assert.Equal(t, "acquired\n", out)

	out, err = run(t, "--config", cfgPath, "acquire", "--batch", "vm", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "acquired\n", out)

	out, err = run(t, "--config", cfgPath, "check", "vm", "host-1")
	require.NoError(t, err)
	assert.Equal(t, "host-1 free\n", out, "the memory store lives only as long as one command")

	out, err = run(t, "--config", cfgPath, "release", "vm", "host-1")
	require.NoError(t, err)
	assert.Equal(t, "released\n", out)

	_, err = run(t, "--config", cfgPath, "acquire", "cluster", "c-1")
	assert.ErrorContains(t, err, "unknown lock")
}

func TestRemoteCommands(t *testing.T) {
	url := startServer(t)

	out, err := run(t, "--server", url, "acquire", "vm", "host-1")
	require.NoError(t, err)
	assert.Equal(t, "acquired\n", out)

	out, err = run(t, "--server", url, "acquire", "vm", "host-1")
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, "vm is busy\n", out)

	out, err = run(t, "--server", url, "check", "vm", "host-1", "host-2")
	require.NoError(t, err)
	assert.Equal(t, "host-1 held\nhost-2 free\n", out)

	out, err = run(t, "--server", url, "acquire", "--batch", "vm", "host-1", "host-3")
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, "vm is busy\n", out)

	_, err = run(t, "--server", url, "release", "vm", "host-1")
	require.NoError(t, err)

	_, err = run(t, "--server", url, "acquire", "--batch", "vm", "host-1", "host-3")
	require.NoError(t, err)

	_, err = run(t, "--server", url, "release", "--batch", "vm", "host-1", "host-3")
	require.NoError(t, err)

	out, err = run(t, "--server", url, "check", "vm", "host-3")
	require.NoError(t, err)
	assert.Equal(t, "host-3 free\n", out)
}

func TestArgumentValidation(t *testing.T) {
	_, err := run(t, "acquire", "vm")
	assert.Error(t, err)

	_, err = run(t, "acquire", "vm", "a", "b")
	assert.Error(t, err, "several suffixes need --batch")

	_, err = run(t, "check", "vm")
	assert.Error(t, err)
}
