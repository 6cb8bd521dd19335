// Package cache memoizes expensive, deterministic lookups in process memory.
//
// Entries expire after a TTL and can be dropped explicitly, by key or by key
// prefix, when the data behind them changes.
package cache

import (
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultTTL     = 10 * time.Minute
	defaultCleanup = 10 * time.Minute
)

// Memo is a thread-safe key/value memo over go-cache.
//
// gen counts invalidations. Do only stores a computed value if no
// invalidation happened while it was being computed, so a read that raced a
// write can never put the pre-write value back.
type Memo struct {
	c *gocache.Cache

	mu  sync.Mutex
	gen uint64
}

// New creates a Memo whose entries live for ttl. A non-positive ttl means
// DefaultTTL.
func New(ttl time.Duration) *Memo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memo{c: gocache.New(ttl, defaultCleanup)}
}

func (m *Memo) Get(key string) (any, bool) {
	return m.c.Get(key)
}

func (m *Memo) Set(key string, v any) {
	m.c.SetDefault(key, v)
}

func (m *Memo) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.c.Delete(key)
}

// DeletePrefix drops every entry whose key starts with prefix.
func (m *Memo) DeletePrefix(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	for key := range m.c.Items() {
		if strings.HasPrefix(key, prefix) {
			m.c.Delete(key)
		}
	}
}

// Len reports the number of unexpired entries.
func (m *Memo) Len() int {
	return m.c.ItemCount()
}

func (m *Memo) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.c.Flush()
}

func (m *Memo) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Do returns the memoized value for key, calling fn and storing its result
// on a miss. Errors are returned but never stored, so a failed call is
// retried next time.
//
// If any Delete, DeletePrefix or Flush runs while fn is in flight, the
// result is returned to this caller but not stored.
func Do[T any](m *Memo, key string, fn func() (T, error)) (T, error) {
	if v, ok := m.c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	start := m.generation()

	v, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}

	m.mu.Lock()
	if m.gen == start {
		m.c.SetDefault(key, v)
	}
	m.mu.Unlock()

	return v, nil
}
