package tts

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leonardotrapani/speechcoach/internal/api"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 200
)

var ErrClosed = errors.New("tts cache closed")

// Clock is the time source used for expiry.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// FetchFunc produces audio for a cache miss.
type FetchFunc func(ctx context.Context) (api.Audio, error)

type Options struct {
	TTL        time.Duration
	MaxEntries int
	Clock      Clock
	Store      Store
}

// Cache holds synthesized audio keyed by (text, language) with a fixed expiry.
// Concurrent misses for the same key share one fetch.
type Cache struct {
	ttl        time.Duration
	maxEntries int
	clock      Clock
	store      Store

	group singleflight.Group

	// mu serializes writes: Put and its eviction, expiry deletes, Close.
	mu     sync.Mutex
	closed bool
}

func NewCache(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	return &Cache{
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		clock:      opts.Clock,
		store:      opts.Store,
	}
}

func (c *Cache) expired(e Entry, now time.Time) bool {
	return now.Sub(e.StoredAt) >= c.ttl
}

// Get returns unexpired audio for key. An expired entry is dropped.
func (c *Cache) Get(key Key) (api.Audio, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return api.Audio{}, false
	}

	e, ok := c.store.Get(key)
	if !ok {
		return api.Audio{}, false
	}
	if c.expired(e, c.clock.Now()) {
		c.store.Delete(key)
		return api.Audio{}, false
	}
	return e.Audio, true
}

// Put stores audio for key, evicting the oldest entries beyond MaxEntries.
func (c *Cache) Put(key Key, audio api.Audio) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.store.Put(key, Entry{Audio: audio, StoredAt: c.clock.Now()})
	if over := c.store.Len() - c.maxEntries; over > 0 {
		for _, k := range c.store.Keys()[:over] {
			c.store.Delete(k)
		}
	}
}

// Invalidate drops key, e.g. after its audio turned out to be unplayable.
func (c *Cache) Invalidate(key Key) {
	c.store.Delete(key)
}

// GetOrFetch returns cached audio or runs fetch once for all concurrent
// callers of the same key. The fetch is detached from any single caller's
// cancellation; each caller still returns when its own ctx ends.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, fetch FetchFunc) (api.Audio, error) {
	if audio, ok := c.Get(key); ok {
		return audio, nil
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return api.Audio{}, ErrClosed
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		audio, err := fetch(fetchCtx)
		if err != nil {
			return api.Audio{}, err
		}
		c.Put(key, audio)
		return audio, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return api.Audio{}, res.Err
		}
		if res.Shared {
			log.Printf("tts-cache: shared fetch for %q (%s)", key.Text, key.Language)
		}
		return res.Val.(api.Audio), nil
	case <-ctx.Done():
		return api.Audio{}, ctx.Err()
	}
}

// Purge drops expired entries and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	removed := 0
	for _, k := range c.store.Keys() {
		if e, ok := c.store.Get(k); ok && c.expired(e, now) {
			c.store.Delete(k)
			removed++
		}
	}
	return removed
}

// Run purges expired entries every interval until ctx ends.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Purge(); n > 0 {
				log.Printf("tts-cache: purged %d expired entries", n)
			}
		}
	}
}

func (c *Cache) Len() int {
	return c.store.Len()
}

// Close releases every entry. Later lookups miss and fetches fail with ErrClosed.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.store.Clear()
}
