// internal/lock/helpers_test.go
package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avivl/lockkeeper/internal/store"
	"github.com/avivl/lockkeeper/internal/store/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryStore(t *testing.T, clock *fakeClock) *memory.Store {
	t.Helper()
	s, err := memory.New(context.Background(), &memory.MemoryConfig{Now: clock.Now}, nil)
	require.NoError(t, err)
	return s
}

var testConfig = Config{
	Prefix:       "datastore",
	ErrorMessage: "datastore is busy, try again later",
	TTL:          120 * time.Second,
}

// MockStore is a testify mock of store.Store.
type MockStore struct {
	mock.Mock
}

var _ store.Store = (*MockStore)(nil)

func (m *MockStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) MSetNX(ctx context.Context, values map[string]string) (bool, error) {
	args := m.Called(ctx, values)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockStore) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	args := m.Called(ctx, key, expected)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

func (m *MockStore) GetConfig() store.StoreConfig {
	return nil
}

// noExpireStore drops every Expire call, like a holder that crashed between
// the multi-set and the expiry step.
type noExpireStore struct {
	store.Store
}

func (noExpireStore) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, store.Unreachable("expire", context.DeadlineExceeded)
}

// recordingMetrics captures counter increments by name and attribute list.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int64)}
}

func (r *recordingMetrics) Increment(_ context.Context, name string, value int64, attributes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := name
	for _, a := range attributes {
		key += "|" + a
	}
	r.counts[key] += value
}

func (r *recordingMetrics) RecordLatency(context.Context, time.Duration, ...string) error {
	return nil
}

func (r *recordingMetrics) count(name string, attributes ...string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := name
	for _, a := range attributes {
		key += "|" + a
	}
	return r.counts[key]
}
