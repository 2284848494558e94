// internal/store/memory/memory_store.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/avivl/lockkeeper/internal/lockservice"
	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/avivl/lockkeeper/internal/store"
)

// StoreName the name of the store.
const StoreName string = "memory"

func init() {
	lockservice.Register(StoreName, newStore)
}

func newStore(ctx context.Context, options lockservice.Config, logger *observability.SLogger) (store.Store, error) {
	if options == nil {
		return New(ctx, &MemoryConfig{}, logger)
	}
	cfg, ok := options.(*MemoryConfig)
	if !ok {
		return nil, &store.InvalidConfigurationError{Store: StoreName, Config: options}
	}
	return New(ctx, cfg, logger)
}

type entry struct {
	value     string
	expiresAt time.Time
}

// Store is a process-local store.Store. Every method holds a single mutex,
// which makes each primitive atomic with respect to the others.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	config  *MemoryConfig
	now     func() time.Time
	l       *observability.SLogger
	closed  bool
}

var _ store.Store = (*Store)(nil)

// New creates an empty memory store.
func New(_ context.Context, cfg *MemoryConfig, logger *observability.SLogger) (*Store, error) {
	if cfg == nil {
		cfg = &MemoryConfig{}
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		entries: make(map[string]entry),
		config:  cfg,
		now:     now,
		l:       logger,
	}, nil
}

// lookup returns the live entry for key, dropping it if expired. Callers hold mu.
func (s *Store) lookup(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *Store) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return store.Unreachable(op, err)
	}
	if s.closed {
		return store.Unreachable(op, errClosed)
	}
	return nil
}

// SetNX implements store.Store.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "setnx"); err != nil {
		return false, err
	}
	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	s.entries[key] = entry{value: value, expiresAt: s.expiry(ttl)}
	return true, nil
}

// MSetNX implements store.Store.
func (s *Store) MSetNX(ctx context.Context, values map[string]string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "msetnx"); err != nil {
		return false, err
	}
	for key := range values {
		if _, ok := s.lookup(key); ok {
			return false, nil
		}
	}
	for key, value := range values {
		s.entries[key] = entry{value: value}
	}
	return true, nil
}

// Expire implements store.Store.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "expire"); err != nil {
		return false, err
	}
	e, ok := s.lookup(key)
	if !ok {
		return false, nil
	}
	e.expiresAt = s.expiry(ttl)
	s.entries[key] = e
	return true, nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "get"); err != nil {
		return "", false, err
	}
	e, ok := s.lookup(key)
	return e.value, ok, nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "delete"); err != nil {
		return err
	}
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// CompareAndDelete implements store.Store.
func (s *Store) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "compare-and-delete"); err != nil {
		return false, err
	}
	e, ok := s.lookup(key)
	if !ok || e.value != expected {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

// TTL returns the remaining lifetime of key, zero if it has none, and whether it exists.
func (s *Store) TTL(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.expiresAt.IsZero() {
		return 0, ok
	}
	return e.expiresAt.Sub(s.now()), true
}

// Close implements store.Store. Operations on a closed store fail with store.ErrNotReachable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.l.Info("memory store closed")
	return nil
}

// GetConfig implements store.Store.
func (s *Store) GetConfig() store.StoreConfig {
	return s.config
}
