// Package cache provides the translation memoization cache.
//
// A TranslationCache keeps live entries in memory, ordered by how recently a
// lookup hit them, and guarantees that at most one fetch per key is in flight:
// concurrent misses on the same key wait for the first caller's result.
package cache

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaguanLabs/chatlai"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Config holds the cache policy.
type Config struct {
	TTL        time.Duration // Entries older than TTL are stale; 0 disables expiry
	MaxEntries int           // Least recently used entries are evicted past this; 0 means unbounded
}

// Option configures a TranslationCache.
type Option func(*TranslationCache)

// WithBackend sets a second-level store consulted on local misses and
// populated after successful fetches.
func WithBackend(backend Backend) Option {
	return func(c *TranslationCache) {
		c.backend = backend
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *TranslationCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *TranslationCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// TranslationCache memoizes translations keyed by (text, source, target).
type TranslationCache struct {
	mu      sync.Mutex
	entries *simplelru.LRU[chatlai.Key, chatlai.Entry]
	flights singleflight.Group

	ttl      time.Duration
	capacity int // 0 means unbounded
	backend  Backend
	now     func() time.Time
	logger  *zap.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	fetches   atomic.Int64
	shared    atomic.Int64
	failures  atomic.Int64
	evictions atomic.Int64
	expired   atomic.Int64
}

// New creates a cache with the given policy.
func New(cfg Config, opts ...Option) *TranslationCache {
	size := cfg.MaxEntries
	if size <= 0 {
		size = math.MaxInt
	}
	// NewLRU only fails for a non-positive size.
	entries, _ := simplelru.NewLRU[chatlai.Key, chatlai.Entry](size, nil)

	ttl := cfg.TTL
	if ttl < 0 {
		ttl = 0
	}

	c := &TranslationCache{
		entries:  entries,
		ttl:      ttl,
		capacity: max(cfg.MaxEntries, 0),
		now:      time.Now,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Lookup returns the translation of a live entry and marks it as recently
// used. It returns chatlai.ErrCacheMiss when the key is absent or stale; a
// stale entry is removed.
func (c *TranslationCache) Lookup(key chatlai.Key) (string, error) {
	entry, ok := c.lookup(key)
	if !ok {
		c.misses.Add(1)
		return "", chatlai.ErrCacheMiss
	}
	c.hits.Add(1)
	return entry.Translated, nil
}

// TranslateOrFetch returns the cached translation for key, or fetches it.
// See Resolve.
func (c *TranslationCache) TranslateOrFetch(ctx context.Context, key chatlai.Key, fetcher chatlai.Fetcher) (string, error) {
	res, err := c.Resolve(ctx, key, fetcher)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// flightValue carries the initiating caller's token so that waiters can tell
// a shared result from their own fetch.
type flightValue struct {
	res   chatlai.Resolution
	owner *byte
}

// Resolve returns the translation for key and where it came from.
//
// On a hit the fetcher is not called. On a miss the caller joins the key's
// flight: the first caller fetches with its own context and stores the
// result, later callers wait for that same outcome. A failed fetch is
// returned to every caller of the flight as a *chatlai.ProviderError and
// nothing is stored. A caller whose ctx ends while waiting returns ctx.Err()
// without affecting the flight.
func (c *TranslationCache) Resolve(ctx context.Context, key chatlai.Key, fetcher chatlai.Fetcher) (chatlai.Resolution, error) {
	if entry, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return chatlai.Resolution{Text: entry.Translated, Origin: chatlai.OriginCache}, nil
	}
	c.misses.Add(1)

	if fetcher == nil {
		return chatlai.Resolution{}, &chatlai.ProviderError{Message: "no fetcher configured"}
	}

	token := new(byte)
	ch := c.flights.DoChan(key.Hash(), func() (v interface{}, err error) {
		// DoChan re-panics in its own goroutine, where no caller could recover.
		defer func() {
			if r := recover(); r != nil {
				c.failures.Add(1)
				c.logger.Error("fetcher panicked", zap.Any("panic", r))
				v = flightValue{owner: token}
				err = &chatlai.ProviderError{Message: fmt.Sprintf("fetcher panicked: %v", r)}
			}
		}()
		res, err := c.fill(ctx, key, fetcher)
		return flightValue{res: res, owner: token}, err
	})

	select {
	case <-ctx.Done():
		return chatlai.Resolution{}, ctx.Err()
	case out := <-ch:
		v, _ := out.Val.(flightValue)
		if v.owner != token {
			c.shared.Add(1)
			if out.Err == nil && v.res.Origin == chatlai.OriginFetched {
				v.res.Origin = chatlai.OriginShared
			}
		}
		if out.Err != nil {
			return chatlai.Resolution{}, out.Err
		}
		return v.res, nil
	}
}

// fill runs once per flight.
func (c *TranslationCache) fill(ctx context.Context, key chatlai.Key, fetcher chatlai.Fetcher) (chatlai.Resolution, error) {
	// A previous flight may have stored the key after this caller's lookup.
	if entry, ok := c.lookup(key); ok {
		return chatlai.Resolution{Text: entry.Translated, Origin: chatlai.OriginCache}, nil
	}

	if entry, ok := c.loadBackend(ctx, key); ok {
		c.store(entry)
		return chatlai.Resolution{Text: entry.Translated, Origin: chatlai.OriginBackend}, nil
	}

	c.fetches.Add(1)
	text, err := fetcher.Fetch(ctx, key.Text, key.Source, key.Target)
	if err != nil {
		c.failures.Add(1)
		c.logger.Debug("fetch failed",
			zap.String("target", key.Target),
			zap.Stringer("source", key.Source),
			zap.Error(err),
		)
		return chatlai.Resolution{}, chatlai.AsProviderError(err)
	}

	entry := chatlai.Entry{Key: key, Translated: text, Timestamp: c.now()}
	c.store(entry)
	c.saveBackend(context.WithoutCancel(ctx), entry)

	return chatlai.Resolution{Text: text, Origin: chatlai.OriginFetched}, nil
}

// lookup returns a live entry and bumps its recency, dropping a stale one.
func (c *TranslationCache) lookup(key chatlai.Key) (chatlai.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		return chatlai.Entry{}, false
	}
	if c.isExpired(entry, c.now()) {
		c.entries.Remove(key)
		c.expired.Add(1)
		return chatlai.Entry{}, false
	}
	return entry, true
}

// store replaces any entry for the key with a new one. A full cache first
// drops its stale entries; the least recently used live entry is evicted
// only when every remaining entry is live.
func (c *TranslationCache) store(entry chatlai.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Remove(entry.Key)
	if c.capacity > 0 && c.entries.Len() >= c.capacity {
		c.expired.Add(int64(c.removeExpiredLocked(c.now())))
	}
	if c.entries.Add(entry.Key, entry) {
		c.evictions.Add(1)
	}
}

// removeExpiredLocked drops every stale entry. c.mu must be held.
func (c *TranslationCache) removeExpiredLocked(now time.Time) int {
	if c.ttl <= 0 {
		return 0
	}

	removed := 0
	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if ok && c.isExpired(entry, now) {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}

func (c *TranslationCache) isExpired(entry chatlai.Entry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.Timestamp) > c.ttl
}

func (c *TranslationCache) loadBackend(ctx context.Context, key chatlai.Key) (chatlai.Entry, bool) {
	if c.backend == nil {
		return chatlai.Entry{}, false
	}

	entry, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache backend read failed", zap.Error(err))
		return chatlai.Entry{}, false
	}
	if !ok || c.isExpired(entry, c.now()) {
		return chatlai.Entry{}, false
	}
	return entry, true
}

func (c *TranslationCache) saveBackend(ctx context.Context, entry chatlai.Entry) {
	if c.backend == nil {
		return
	}
	if err := c.backend.Put(ctx, entry); err != nil {
		c.logger.Warn("cache backend write failed", zap.Error(err))
	}
}

// EvictExpired removes every entry older than the TTL at now and returns how
// many were removed.
func (c *TranslationCache) EvictExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.removeExpiredLocked(now)
	c.expired.Add(int64(removed))
	return removed
}

// RunJanitor calls EvictExpired every interval until ctx is done.
func (c *TranslationCache) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || c.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.EvictExpired(c.now()); n > 0 {
				c.logger.Debug("evicted expired translations", zap.Int("count", n))
			}
		}
	}
}

// Restore inserts an entry as-is, keeping its timestamp. Entries that are
// already stale are ignored and reported as false.
func (c *TranslationCache) Restore(entry chatlai.Entry) bool {
	if c.isExpired(entry, c.now()) {
		return false
	}
	c.store(entry)
	return true
}

// Entries returns the live entries, least recently used first.
func (c *TranslationCache) Entries() []chatlai.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	result := make([]chatlai.Entry, 0, c.entries.Len())
	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if !ok || c.isExpired(entry, now) {
			continue
		}
		result = append(result, entry)
	}
	return result
}

// Len returns the number of entries in the cache (including stale ones not
// yet evicted).
func (c *TranslationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Clear removes all entries from the cache.
func (c *TranslationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Fetches   int64 `json:"fetches"`
	Shared    int64 `json:"shared"`
	Failures  int64 `json:"failures"`
	Evictions int64 `json:"evictions"`
	Expired   int64 `json:"expired"`
}

// Stats returns the current counters.
func (c *TranslationCache) Stats() Stats {
	return Stats{
		Entries:   c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Fetches:   c.fetches.Load(),
		Shared:    c.shared.Load(),
		Failures:  c.failures.Load(),
		Evictions: c.evictions.Load(),
		Expired:   c.expired.Load(),
	}
}

// TTL returns the configured time to live.
func (c *TranslationCache) TTL() time.Duration {
	return c.ttl
}

var _ chatlai.Cache = (*TranslationCache)(nil)
