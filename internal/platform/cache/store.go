// Package cache is a typed in-process TTL cache for repository lookups.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store holds loaded values until they expire or the store is purged.
// Concurrent loads of one key share a single loader call. A load that
// started before a Purge never repopulates the store, so a purge after a
// commit cannot be undone by a read that saw the old rows.
type Store[V any] struct {
	mu         sync.RWMutex
	entries    map[string]entry[V]
	generation uint64
	ttl        time.Duration
	flight     singleflight.Group
	now        func() time.Time
}

// NewStore builds a store. A zero ttl keeps entries until Purge.
func NewStore[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Store[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	if key == "" {
		return zero, false
	}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if s.ttl > 0 && !e.expiresAt.After(s.now()) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

func (s *Store[V]) Set(_ context.Context, key string, value V) {
	s.mu.Lock()
	s.setLocked(key, value)
	s.mu.Unlock()
}

func (s *Store[V]) setLocked(key string, value V) {
	if key == "" {
		return
	}
	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}
	s.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
}

// Purge drops every entry and invalidates loads still in flight.
func (s *Store[V]) Purge(_ context.Context) {
	s.mu.Lock()
	clear(s.entries)
	s.generation++
	s.mu.Unlock()
}

func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetOrLoad returns the cached value for key or runs loader once for all
// concurrent callers. Loader errors are returned and never cached.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (V, error)) (V, error) {
	var zero V
	if loader == nil {
		return zero, fmt.Errorf("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}
	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	s.mu.RLock()
	gen := s.generation
	s.mu.RUnlock()

	// Callers arriving after a purge never join a load that began before it.
	out, err, _ := s.flight.Do(strconv.FormatUint(gen, 10)+"|"+key, func() (any, error) {
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.generation == gen {
			s.setLocked(key, loaded)
		}
		s.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}
	return out.(V), nil
}
