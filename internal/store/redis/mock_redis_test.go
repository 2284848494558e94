// internal/store/redis/mock_redis_test.go
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockRedisClient is a mock for the Redis client
type MockRedisClient struct {
	mock.Mock
}

var _ redisClient = (*MockRedisClient)(nil)

// SetNX mocks the SetNX method
func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.BoolCmd)
}

// MSetNX mocks the MSetNX method
func (m *MockRedisClient) MSetNX(ctx context.Context, values ...interface{}) *redis.BoolCmd {
	args := m.Called(ctx, values)
	return args.Get(0).(*redis.BoolCmd)
}

// Get mocks the Get method
func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.StringCmd)
}

// Del mocks the Del method
func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*redis.IntCmd)
}

// Expire mocks the Expire method
func (m *MockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, expiration)
	return args.Get(0).(*redis.BoolCmd)
}

// Eval mocks the Eval method
func (m *MockRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	called := m.Called(ctx, script, keys, args)
	return called.Get(0).(*redis.Cmd)
}

// Ping mocks the Ping method
func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	args := m.Called(ctx)
	return args.Get(0).(*redis.StatusCmd)
}

// Close mocks the Close method
func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// withMockClient swaps the client factory for the duration of a test.
func withMockClient(t interface{ Cleanup(func()) }, client *MockRedisClient) {
	original := newRedisClientFn
	newRedisClientFn = func(*RedisConfig) redisClient { return client }
	t.Cleanup(func() { newRedisClientFn = original })
}

func pongCmd(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}
