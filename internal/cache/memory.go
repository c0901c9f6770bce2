// Package cache provides the config cache backends: an in-process LRU and
// Redis. Both store opaque byte values with per-entry TTLs and can delete
// keys by glob pattern.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the entry limit of a Memory cache created with size <= 0.
const DefaultSize = 1024

type entry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// Memory is a size-bounded in-process cache. Least recently used entries are
// evicted when the cache is full; expired entries are dropped on access.
type Memory struct {
	lru *lru.Cache[string, entry]
	now func() time.Time

	mu       sync.Mutex
	patterns map[string]glob.Glob
}

// NewMemory creates a Memory cache holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &Memory{
		lru:      c,
		now:      time.Now,
		patterns: make(map[string]glob.Glob),
	}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if m.expired(e) {
		m.lru.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.lru.Add(key, e)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.lru.Remove(k)
	}
	return nil
}

func (m *Memory) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok, _ := m.Get(ctx, k); ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *Memory) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	for k, v := range items {
		if err := m.Set(ctx, k, v, ttl); err != nil {
			return err
		}
	}
	return nil
}

// DeletePattern removes every key matching the glob pattern.
func (m *Memory) DeletePattern(_ context.Context, pattern string) (int, bool, error) {
	g, err := m.compile(pattern)
	if err != nil {
		return 0, true, err
	}
	n := 0
	for _, k := range m.lru.Keys() {
		if g.Match(k) && m.lru.Remove(k) {
			n++
		}
	}
	return n, true, nil
}

// Len returns the number of entries, including expired ones not yet
// dropped.
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Purge drops every entry.
func (m *Memory) Purge() {
	m.lru.Purge()
}

func (m *Memory) expired(e entry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}

func (m *Memory) compile(pattern string) (glob.Glob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.patterns[pattern]; ok {
		return g, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	m.patterns[pattern] = g
	return g, nil
}
