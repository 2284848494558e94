// internal/store/redis/redis_store.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/avivl/lockkeeper/internal/lockservice"
	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/avivl/lockkeeper/internal/store"
	"github.com/redis/go-redis/v9"
)

// Error definitions
var (
	ErrConfigOptionMissing = errors.New("redis requires a config option")
)

// StoreName is the registered name of the Redis store
const StoreName = "redis"

// compareAndDeleteScript deletes KEYS[1] only while it still holds ARGV[1].
const compareAndDeleteScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// redisClient defines the interface for Redis operations
// This allows for easier mocking in tests
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	MSetNX(ctx context.Context, values ...interface{}) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Factory function for creating Redis clients
// Can be replaced during tests for mocking
var newRedisClientFn = func(cfg *RedisConfig) redisClient {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
	})
}

// Register the Redis store with the lockservice package
func init() {
	lockservice.Register(StoreName, newStore)
}

// newStore creates a new Redis store instance from configuration
func newStore(ctx context.Context, options lockservice.Config, logger *observability.SLogger) (store.Store, error) {
	cfg, ok := options.(*RedisConfig)
	if !ok && options != nil {
		return nil, &store.InvalidConfigurationError{Store: StoreName, Config: options}
	}
	return New(ctx, cfg, logger)
}

// Store implements the store.Store interface for Redis
type Store struct {
	client redisClient
	l      *observability.SLogger
	config *RedisConfig
}

var _ store.Store = (*Store)(nil)

// GetConfig returns the current store configuration
func (s *Store) GetConfig() store.StoreConfig {
	return s.config
}

// New creates a new Redis store with the provided configuration
func New(ctx context.Context, config *RedisConfig, logger *observability.SLogger) (*Store, error) {
	if config == nil {
		return nil, ErrConfigOptionMissing
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = observability.NewNopLogger()
	}

	client := newRedisClientFn(config)

	pingCtx, cancel := context.WithTimeout(ctx, config.OpTimeout)
	defer cancel()

	// Test connection
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		logger.Errorf("Error connecting to Redis: %v", err)
		_ = client.Close()
		return nil, store.Unreachable("connect to redis at "+config.Addr(), err)
	}

	return &Store{
		client: client,
		l:      logger,
		config: config,
	}, nil
}

// SetNX maps to SET key value EX ttl NX.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		s.l.Errorf("Error setting key %s: %v", key, err)
		return false, store.Unreachable("redis setnx", err)
	}
	return ok, nil
}

// MSetNX maps to MSETNX. Arguments are sent in key order.
func (s *Store) MSetNX(ctx context.Context, values map[string]string) (bool, error) {
	if len(values) == 0 {
		return true, nil
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(values)*2)
	for _, k := range keys {
		args = append(args, k, values[k])
	}

	ok, err := s.client.MSetNX(ctx, args...).Result()
	if err != nil {
		s.l.Errorf("Error setting %d keys: %v", len(keys), err)
		return false, store.Unreachable("redis msetnx", err)
	}
	return ok, nil
}

// Expire maps to EXPIRE.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, store.Unreachable("redis expire", err)
	}
	return ok, nil
}

// Get maps to GET; a nil reply reports the key as absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, store.Unreachable("redis get", err)
	}
	return value, true, nil
}

// Delete maps to a single DEL over all keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.l.Errorf("Error deleting keys %v: %v", keys, err)
		return store.Unreachable("redis del", err)
	}
	return nil
}

// CompareAndDelete runs a Lua script so the comparison and the delete are atomic.
func (s *Store) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	n, err := s.client.Eval(ctx, compareAndDeleteScript, []string{key}, expected).Int64()
	if err != nil {
		return false, store.Unreachable("redis compare-and-delete", err)
	}
	return n == 1, nil
}

// Close closes the Redis client connection
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		s.l.Errorf("Error closing Redis connection: %v", err)
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
