// internal/lockservice/mock_test.go
package lockservice

import (
	"context"
	"time"

	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/avivl/lockkeeper/internal/store"
)

const testStoreName = "mock"

// MockConfig implements store.StoreConfig
type MockConfig struct {
	Endpoints []string
	Table     string
}

// Validate validates the configuration
func (c *MockConfig) Validate() error {
	return nil
}

// GetEndpoints returns the endpoints
func (c *MockConfig) GetEndpoints() []string {
	return c.Endpoints
}

// GetTableName returns the table name
func (c *MockConfig) GetTableName() string {
	return c.Table
}

// newStore is the constructor registered under testStoreName.
func newStore(_ context.Context, options Config, _ *observability.SLogger) (store.Store, error) {
	cfg, ok := options.(*MockConfig)
	if !ok {
		return nil, &store.InvalidConfigurationError{Store: testStoreName, Config: options}
	}
	return &Mock{cfg: cfg}, nil
}

// Mock is a do-nothing store.Store.
type Mock struct {
	cfg    *MockConfig
	closed bool
}

func (m *Mock) SetNX(context.Context, string, string, time.Duration) (bool, error) { return true, nil }

func (m *Mock) MSetNX(context.Context, map[string]string) (bool, error) { return true, nil }

func (m *Mock) Expire(context.Context, string, time.Duration) (bool, error) { return true, nil }

func (m *Mock) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (m *Mock) Delete(context.Context, ...string) error { return nil }

func (m *Mock) CompareAndDelete(context.Context, string, string) (bool, error) { return false, nil }

// Close closes the Mock store
func (m *Mock) Close() error {
	m.closed = true
	return nil
}

// GetConfig returns the current store configuration
func (m *Mock) GetConfig() store.StoreConfig {
	return m.cfg
}
