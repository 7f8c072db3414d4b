package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNil mimics redis.Nil for missing keys.
var ErrNil = errors.New("cache: nil")

// Cache is an in-memory CacheService.
type Cache struct {
	mu      sync.Mutex
	strings map[string]string
	hashes  map[string]map[string]string
	sets    map[string]map[string]struct{}
	Err     error
}

func NewCache() *Cache {
	return &Cache{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		sets:    make(map[string]map[string]struct{}),
	}
}

func (c *Cache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.strings[key] = fmt.Sprint(value)
	return nil
}

func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return "", c.Err
	}
	v, ok := c.strings[key]
	if !ok {
		return "", ErrNil
	}
	return v, nil
}

func (c *Cache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	for _, k := range keys {
		delete(c.strings, k)
		delete(c.hashes, k)
		delete(c.sets, k)
	}
	return nil
}

func (c *Cache) HSet(_ context.Context, key string, values map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	h, ok := c.hashes[key]
	if !ok {
		h = make(map[string]string)
		c.hashes[key] = h
	}
	for f, v := range values {
		h[f] = fmt.Sprint(v)
	}
	return nil
}

func (c *Cache) HGetAll(_ context.Context, key string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := make(map[string]string)
	for f, v := range c.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (c *Cache) SAdd(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	s, ok := c.sets[key]
	if !ok {
		s = make(map[string]struct{})
		c.sets[key] = s
	}
	for _, m := range members {
		s[m] = struct{}{}
	}
	return nil
}

func (c *Cache) SRem(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	for _, m := range members {
		delete(c.sets[key], m)
	}
	return nil
}

func (c *Cache) SMembers(_ context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := make([]string, 0, len(c.sets[key]))
	for m := range c.sets[key] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (c *Cache) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Err
}

func (c *Cache) Close() error { return nil }
