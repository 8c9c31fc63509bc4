package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process expiring LRU used when Redis is not
// configured. maxTTL bounds every entry; shorter per-entry TTLs are
// checked on read.
type MemoryCache struct {
	lru   *expirable.LRU[string, memoryEntry]
	clock clock.Clock
}

func NewMemoryCache(size int, maxTTL time.Duration, clk clock.Clock) *MemoryCache {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryCache{
		lru:   expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		clock: clk,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return false, nil
	}
	if !e.expiresAt.IsZero() && !c.clock.Now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return false, nil
	}
	if err := json.Unmarshal(e.value, dest); err != nil {
		return false, fmt.Errorf("decode cached %q: %w", key, err)
	}
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := memoryEntry{value: b}
	if ttl > 0 {
		e.expiresAt = c.clock.Now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
	return nil
}

func (c *MemoryCache) Ping(context.Context) error {
	return nil
}

func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
