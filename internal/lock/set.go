// internal/lock/set.go
package lock

import (
	"fmt"
	"sort"
	"time"

	"github.com/avivl/lockkeeper/internal/store"
)

// Definition names a lock configuration.
type Definition struct {
	Name         string
	Prefix       string
	ErrorMessage string
	TTL          time.Duration
}

// Config returns the lock configuration of d.
func (d Definition) Config() Config {
	return Config{Prefix: d.Prefix, ErrorMessage: d.ErrorMessage, TTL: d.TTL}
}

// Pair is the single and batch view of one named lock. Both share the prefix,
// so keys taken by a batch acquire are visible to Single.Check.
type Pair struct {
	Single *Lock
	Batch  *BatchLock
}

// Set holds the named locks of a process.
type Set struct {
	pairs map[string]Pair
}

// NewSet builds a Pair for every definition.
func NewSet(st store.Store, defs []Definition, opts ...Option) (*Set, error) {
	pairs := make(map[string]Pair, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: lock name is required", ErrInvalidConfig)
		}
		if _, dup := pairs[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate lock name %q", ErrInvalidConfig, d.Name)
		}

		single, err := New(st, d.Config(), opts...)
		if err != nil {
			return nil, fmt.Errorf("lock %q: %w", d.Name, err)
		}
		batch, err := NewBatch(st, d.Config(), opts...)
		if err != nil {
			return nil, fmt.Errorf("lock %q: %w", d.Name, err)
		}
		pairs[d.Name] = Pair{Single: single, Batch: batch}
	}
	return &Set{pairs: pairs}, nil
}

// Get returns the named lock or ErrUnknownLock.
func (s *Set) Get(name string) (Pair, error) {
	p, ok := s.pairs[name]
	if !ok {
		return Pair{}, fmt.Errorf("%w: %q", ErrUnknownLock, name)
	}
	return p, nil
}

// Names returns the defined lock names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.pairs))
	for n := range s.pairs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
