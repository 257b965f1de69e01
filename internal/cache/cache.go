package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mangamatch/internal/kvstore"
	"mangamatch/internal/logging"
)

const flushTimeout = 10 * time.Second

// Options configures a Cache.
type Options struct {
	// Namespace is the store key holding the persisted document.
	Namespace string
	TTL       time.Duration
	Store     kvstore.Store
	// Debounce delays persistence after Put so bursts of writes share one
	// flush. Zero or negative flushes synchronously on every Put.
	Debounce time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

type entry[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// Cache is a namespaced, TTL-bounded map persisted to a kvstore.Store as a
// single JSON document.
type Cache[T any] struct {
	namespace string
	ttl       time.Duration
	store     kvstore.Store
	debounce  time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry[T]
	timer   *time.Timer
	dirty   bool
	closed  bool

	flushMu sync.Mutex
}

// New builds a cache and loads whatever the store holds for the namespace.
// Expired entries are discarded during load; a corrupt document is logged and
// the cache starts empty.
func New[T any](ctx context.Context, opts Options) *Cache[T] {
	if opts.Store == nil {
		opts.Store = kvstore.NewMemory()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := logging.NewComponentLogger(opts.Logger, "cache").With(slog.String("namespace", opts.Namespace))

	c := &Cache[T]{
		namespace: opts.Namespace,
		ttl:       opts.TTL,
		store:     opts.Store,
		debounce:  opts.Debounce,
		now:       opts.Now,
		logger:    logger,
		entries:   make(map[string]entry[T]),
	}

	if err := c.load(ctx); err != nil {
		logging.WarnWithContext(logger, "failed to load cache", "cache_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `mangamatch cache clear` if the problem persists"),
			logging.String(logging.FieldImpact, "cached lookups will be fetched again"),
		)
	}
	return c
}

// Namespace returns the store key of the cache.
func (c *Cache[T]) Namespace() string {
	return c.namespace
}

// TTL returns the lifetime of an entry.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[T]) valid(e entry[T], now time.Time) bool {
	return now.Sub(time.UnixMilli(e.Timestamp)) < c.ttl
}

// Get returns the value stored under key when it has not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.valid(e, c.now()) {
		var zero T
		return zero, false
	}
	return e.Data, true
}

// Put stores value under key and schedules persistence. Each Put restarts
// the debounce window.
func (c *Cache[T]) Put(key string, value T) {
	c.mu.Lock()
	c.entries[key] = entry[T]{Data: value, Timestamp: c.now().UnixMilli()}
	immediate := c.scheduleLocked()
	c.mu.Unlock()

	if immediate {
		c.flushInBackground()
	}
}

// Update replaces the value under key with fn(old, ok), where ok reports
// whether a live value was present. fn runs with the cache locked and must
// not call back into it.
func (c *Cache[T]) Update(key string, fn func(old T, ok bool) T) {
	c.mu.Lock()
	e, ok := c.entries[key]
	ok = ok && c.valid(e, c.now())
	if !ok {
		e = entry[T]{}
	}
	value := fn(e.Data, ok)
	c.entries[key] = entry[T]{Data: value, Timestamp: c.now().UnixMilli()}
	immediate := c.scheduleLocked()
	c.mu.Unlock()

	if immediate {
		c.flushInBackground()
	}
}

// scheduleLocked marks the cache dirty and arms or restarts the flush timer.
// It reports whether the caller should flush synchronously instead.
func (c *Cache[T]) scheduleLocked() bool {
	c.dirty = true
	if c.closed {
		return false
	}
	if c.debounce <= 0 {
		return true
	}
	if c.timer == nil {
		c.timer = time.AfterFunc(c.debounce, c.flushInBackground)
	} else {
		c.timer.Reset(c.debounce)
	}
	return false
}

func (c *Cache[T]) flushInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		logging.WarnWithContext(c.logger, "cache flush failed", "cache_flush_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the cache backend is reachable"),
			logging.String(logging.FieldImpact, "recent lookups will not survive a restart"),
		)
	}
}

// Invalidate removes key and persists immediately.
func (c *Cache[T]) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	c.dirty = c.dirty || existed
	c.mu.Unlock()
	if !existed {
		return nil
	}
	return c.Flush(ctx)
}

// InvalidatePrefix removes every key starting with prefix, persists, and
// returns how many entries were removed.
func (c *Cache[T]) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.dirty = true
	}
	c.mu.Unlock()
	if removed == 0 {
		return 0, nil
	}
	return removed, c.Flush(ctx)
}

// Clear drops every entry and removes the persisted document.
func (c *Cache[T]) Clear(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	c.entries = make(map[string]entry[T])
	c.dirty = false
	c.stopTimerLocked()
	c.mu.Unlock()

	if err := c.store.Remove(ctx, c.namespace); err != nil {
		return fmt.Errorf("clear %s: %w", c.namespace, err)
	}
	c.logger.Debug("cache cleared")
	return nil
}

// Range calls fn for each live entry until fn returns false. fn runs on a
// snapshot and may call back into the cache.
func (c *Cache[T]) Range(fn func(key string, value T, storedAt time.Time) bool) {
	type item struct {
		key string
		e   entry[T]
	}
	c.mu.RLock()
	now := c.now()
	items := make([]item, 0, len(c.entries))
	for key, e := range c.entries {
		if c.valid(e, now) {
			items = append(items, item{key: key, e: e})
		}
	}
	c.mu.RUnlock()

	for _, it := range items {
		if !fn(it.key, it.e.Data, time.UnixMilli(it.e.Timestamp)) {
			return
		}
	}
}

// Len returns the number of live entries.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	n := 0
	for _, e := range c.entries {
		if c.valid(e, now) {
			n++
		}
	}
	return n
}

// Stats summarizes a cache namespace.
type Stats struct {
	Namespace string        `json:"namespace"`
	TTL       time.Duration `json:"ttl"`
	Entries   int           `json:"entries"`
	Expired   int           `json:"expired"`
	Oldest    time.Time     `json:"oldest"`
	Newest    time.Time     `json:"newest"`
}

// Stats reports live and expired entry counts along with the age range of
// live entries.
func (c *Cache[T]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	stats := Stats{Namespace: c.namespace, TTL: c.ttl}
	for _, e := range c.entries {
		if !c.valid(e, now) {
			stats.Expired++
			continue
		}
		stats.Entries++
		at := time.UnixMilli(e.Timestamp)
		if stats.Oldest.IsZero() || at.Before(stats.Oldest) {
			stats.Oldest = at
		}
		if at.After(stats.Newest) {
			stats.Newest = at
		}
	}
	return stats
}

// Flush persists live entries now. Expired entries are pruned from the
// document and from memory.
func (c *Cache[T]) Flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	c.stopTimerLocked()
	if !c.dirty {
		c.mu.Unlock()
		return nil
	}
	now := c.now()
	for key, e := range c.entries {
		if !c.valid(e, now) {
			delete(c.entries, key)
		}
	}
	payload, err := json.Marshal(c.entries)
	c.dirty = false
	count := len(c.entries)
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("encode %s: %w", c.namespace, err)
	}
	if err := c.store.Set(ctx, c.namespace, string(payload)); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return fmt.Errorf("persist %s: %w", c.namespace, err)
	}
	c.logger.Debug("cache flushed", logging.Int("entry_count", count))
	return nil
}

// Close flushes pending writes. Later Puts stay in memory only.
func (c *Cache[T]) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()
	return c.Flush(ctx)
}

func (c *Cache[T]) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Cache[T]) load(ctx context.Context) error {
	raw, ok, err := c.store.Get(ctx, c.namespace)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.namespace, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}

	var stored map[string]entry[T]
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("parse %s: %w", c.namespace, err)
	}

	now := c.now()
	dropped := 0
	for key, e := range stored {
		if !c.valid(e, now) {
			dropped++
			continue
		}
		c.entries[key] = e
	}
	c.logger.Debug("loaded cache",
		logging.Int("entry_count", len(c.entries)),
		logging.Int("expired_dropped", dropped))
	return nil
}
