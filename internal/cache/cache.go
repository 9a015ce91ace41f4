package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxEntries    = 2048
	DefaultSweepInterval = 5 * time.Minute
)

// TTL presets per catalog lookup class. Discover results churn with
// popularity, so they stay short-lived; genre lists barely change.
const (
	TTLDiscover  = 5 * time.Minute
	TTLDetails   = 24 * time.Hour
	TTLProviders = 24 * time.Hour
	TTLVideos    = 7 * 24 * time.Hour
	TTLGenres    = 7 * 24 * time.Hour
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

// Cache is a bounded in-memory map with per-entry expiry. Reads drop
// expired entries lazily; a background sweeper clears the rest. Inserting
// into a full cache evicts the tenth of entries closest to expiry.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	hits       int64
	misses     int64
	evictions  int64

	now        func() time.Time
	flight     singleflight.Group
	sweepEvery time.Duration

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Cache)

func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) {
		c.sweepEvery = d
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(maxEntries int, opts ...Option) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
		sweepEvery: DefaultSweepInterval,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, still := c.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
			c.evictions++
		}
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return e.value, true
}

// Set stores value under key for ttl. Inserting a new key into a full cache
// first evicts the entries expiring soonest.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictSoonestLocked(c.maxEntries / 10)
	}
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// evictSoonestLocked removes up to n entries ordered by earliest expiry.
func (c *Cache) evictSoonestLocked(n int) {
	if n < 1 {
		n = 1
	}
	type candidate struct {
		key       string
		expiresAt time.Time
	}
	all := make([]candidate, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, candidate{key: k, expiresAt: e.expiresAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].expiresAt.Before(all[j].expiresAt) })
	if n > len(all) {
		n = len(all)
	}
	for _, victim := range all[:n] {
		delete(c.entries, victim.key)
		c.evictions++
	}
}

// GetOrCompute returns the cached value for key, or runs produce once and
// caches its result for ttl. Concurrent callers for the same missing key
// share a single produce call and all observe its value or error.
func (c *Cache) GetOrCompute(key string, ttl time.Duration, produce func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// A winner may have populated the entry while we queued.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := produce()
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	return v, err
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.evictions++
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Start launches the background sweeper. Safe to call once; Stop waits for
// the sweeper to exit.
func (c *Cache) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		ctx, c.cancel = context.WithCancel(ctx)
		go c.run(ctx)
	})
}

func (c *Cache) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

func (c *Cache) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				log.Printf("cache: sweep removed %d expired entries", removed)
			}
		}
	}
}

// Sweep removes every expired entry and reports how many were dropped.
func (c *Cache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	c.evictions += int64(removed)
	return removed
}

// Key builds a canonical cache key from a prefix and a parameter map.
// Parameters are sorted by name and rendered as stable JSON; empty values
// are dropped so that semantically equal parameter sets share a key no
// matter how callers assembled them.
func Key(prefix string, params map[string]any) string {
	if len(params) == 0 {
		return prefix
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(prefix)
	for _, name := range names {
		rendered, ok := renderValue(params[name])
		if !ok {
			continue
		}
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(rendered)
	}
	return b.String()
}

// renderValue returns the stable JSON form of v, reporting false for values
// that should not participate in the key (absent, zero, empty).
func renderValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v), true
	}
	s := string(data)
	switch s {
	case `""`, "0", "null", "[]", "{}", "false":
		return "", false
	}
	return s, true
}
