// SPDX-License-Identifier: MPL-2.0

// Package memo caches idempotent path-keyed lookups for the duration of one
// command invocation.
//
// A session is opened with WithMemoizer and travels in the context.Context
// passed to every discovery call. Nested WithMemoizer calls on a context that
// already carries a session share it; the session's caches are dropped when the
// outermost call returns. Functions wrapped with Memoize consult the session's
// cache for their key and call through uncached when no session is active.
package memo

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxEntries is the per-function cache size past which that
	// function's whole cache is cleared.
	DefaultMaxEntries = 5000

	// StrictEnvVar, when set to "1", makes memoized functions log a warning
	// when they are called without an active session.
	StrictEnvVar = "MODLINK_MEMO_STRICT"
)

type (
	sessionKey struct{}

	// fnID gives every memoized function its own cache inside a session.
	fnID struct{ _ byte }

	// Func is the shape of a memoizable lookup: the key is a path string.
	Func[V any] func(ctx context.Context, key string) (V, error)

	// Option configures a new session.
	Option func(*Session)

	// Session is a reference-counted set of per-function caches.
	Session struct {
		mu         sync.Mutex
		refs       int
		maxEntries int
		caches     map[*fnID]*fnCache
	}

	fnCache struct {
		mu      sync.Mutex
		entries map[string]any
		group   singleflight.Group
	}
)

// WithMaxEntries overrides DefaultMaxEntries for a new session.
func WithMaxEntries(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithMemoizer runs fn inside a memoizer session. If ctx already carries a
// session it is reused and its reference count incremented; otherwise a new
// session is created with opts. The caches are cleared when the count drops
// back to zero.
func WithMemoizer(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	s := FromContext(ctx)
	if s == nil {
		s = newSession(opts...)
		ctx = context.WithValue(ctx, sessionKey{}, s)
	}

	s.acquire()
	defer s.release()

	return fn(ctx)
}

// FromContext returns the session carried by ctx, or nil.
func FromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// Memoize wraps fn so calls inside an active session are cached by key.
// Concurrent misses for the same key share one call to fn. Errors are returned
// to every waiter but are not cached.
func Memoize[V any](fn Func[V]) Func[V] {
	id := &fnID{}

	return func(ctx context.Context, key string) (V, error) {
		s := FromContext(ctx)
		if s == nil || !s.Active() {
			if os.Getenv(StrictEnvVar) == "1" {
				slog.Warn("memoized function called outside of a memoizer session", "key", key)
			}
			return fn(ctx, key)
		}

		c := s.cacheFor(id)
		if v, ok := c.get(key); ok {
			return as[V](v), nil
		}

		v, err, _ := c.group.Do(key, func() (any, error) {
			if cached, ok := c.get(key); ok {
				return cached, nil
			}
			computed, err := fn(ctx, key)
			if err != nil {
				return computed, err
			}
			c.put(key, computed, s.maxEntries)
			return computed, nil
		})
		return as[V](v), err
	}
}

// as converts a cached value back to V; a nil interface becomes V's zero value.
func as[V any](v any) V {
	typed, _ := v.(V)
	return typed
}

func newSession(opts ...Option) *Session {
	s := &Session{
		maxEntries: DefaultMaxEntries,
		caches:     make(map[*fnID]*fnCache),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active reports whether at least one WithMemoizer call holds the session.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs > 0
}

// Refs returns the current reference count.
func (s *Session) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

func (s *Session) acquire() {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs--
	if s.refs <= 0 {
		s.refs = 0
		s.caches = make(map[*fnID]*fnCache)
	}
}

func (s *Session) cacheFor(id *fnID) *fnCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[id]
	if !ok {
		c = &fnCache{entries: make(map[string]any)}
		s.caches[id] = c
	}
	return c
}

func (c *fnCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// put stores v under key. Once the cache grows past maxEntries it is emptied
// wholesale rather than evicted entry by entry.
func (c *fnCache) put(key string, v any, maxEntries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= maxEntries {
		clear(c.entries)
	}
	c.entries[key] = v
}
