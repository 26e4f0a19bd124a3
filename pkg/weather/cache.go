package weather

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"skycast/pkg/core"
	"skycast/pkg/models"
)

// Fetcher is the opaque upstream weather collaborator: one numeric reading
// per call. Implementations must honor the context deadline.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (float64, error)
}

type reading struct {
	value      float64
	observedAt time.Time
}

// entry holds one city's bounded reading history and its request counter.
// Its mutex makes counter increments and reading appends for the same city
// atomic with respect to each other, without serializing other cities.
type entry struct {
	mu        sync.Mutex
	readings  []reading
	count     int64
	fetchedAt time.Time

	key      string
	elem     *list.Element // guarded by Cache.mu
	unlinked atomic.Bool   // set when the entry leaves the map
}

// Cache bounds memory at O(maxCities * maxReadings): distinct cities are
// LRU-evicted past maxCities, per-city history is capped at maxReadings.
//
// Lock order is Cache.mu before entry.mu, and Cache.mu is only ever held for
// map and LRU bookkeeping; the upstream fetch happens under the entry lock
// alone.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front = most recently used

	ttl         time.Duration
	maxCities   int
	maxReadings int
}

func NewCache(ttl time.Duration, maxCities, maxReadings int) *Cache {
	return &Cache{
		entries:     make(map[string]*entry),
		lru:         list.New(),
		ttl:         ttl,
		maxCities:   maxCities,
		maxReadings: maxReadings,
	}
}

// Normalize maps a user-supplied city name onto its cache key.
func Normalize(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// RecordAndGet serves one lookup for city. Fresh entries are answered from
// the retained readings; absent or stale entries invoke the fetcher first.
// Every completed lookup increments the city's counter exactly once. A
// failed fetch leaves the cache exactly as it was.
func (c *Cache) RecordAndGet(ctx context.Context, city string, fetch Fetcher) (models.WeatherReport, error) {
	key := Normalize(city)
	for {
		e := c.entryFor(key)

		e.mu.Lock()
		if e.unlinked.Load() {
			// Removed between entryFor and here; start over on a live entry.
			e.mu.Unlock()
			continue
		}

		now := time.Now()
		if len(e.readings) > 0 && now.Sub(e.fetchedAt) < c.ttl {
			e.count++
			rep := e.report(key, true)
			e.mu.Unlock()
			return rep, nil
		}

		value, err := fetch.Fetch(ctx, key)
		if err != nil {
			empty := len(e.readings) == 0
			e.mu.Unlock()
			if empty {
				c.removeIfEmpty(key, e)
			}
			if errors.Is(err, core.ErrCityUnknown) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return models.WeatherReport{}, err
			}
			return models.WeatherReport{}, fmt.Errorf("%w: %w", core.ErrUpstreamUnavailable, err)
		}

		e.readings = append(e.readings, reading{value: value, observedAt: now})
		if len(e.readings) > c.maxReadings {
			e.readings = e.readings[len(e.readings)-c.maxReadings:]
		}
		e.fetchedAt = now
		e.count++
		rep := e.report(key, false)
		e.mu.Unlock()
		return rep, nil
	}
}

// report assembles the response under the entry lock. The weights grow
// linearly with recency (oldest=1 .. newest=k), so recent readings lead
// without older ones becoming numerically irrelevant.
func (e *entry) report(key string, cached bool) models.WeatherReport {
	var num, den float64
	for i, r := range e.readings {
		w := float64(i + 1)
		num += r.value * w
		den += w
	}
	avg := 0.0
	if den > 0 {
		avg = num / den
	}
	return models.WeatherReport{City: key, AvgTemp: avg, ReqCount: e.count, Cached: cached}
}

// entryFor returns the live entry for key, creating it (and evicting the
// least-recently-used city if we are at capacity) when absent.
func (c *Cache) entryFor(key string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.lru.MoveToFront(e.elem)
		return e
	}

	if c.maxCities > 0 && len(c.entries) >= c.maxCities {
		if back := c.lru.Back(); back != nil {
			victim := back.Value.(*entry)
			victim.unlinked.Store(true)
			c.lru.Remove(back)
			delete(c.entries, victim.key)
		}
	}

	e := &entry{key: key}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e
	return e
}

// removeIfEmpty undoes a speculative insert after a failed first fetch, so
// an upstream outage never leaves half-initialized entries behind. If
// another lookup holds the entry lock the entry is left alone: that lookup
// either populates it or lands back here. TryLock keeps Cache.mu from ever
// waiting on an entry lock held across a fetch.
func (c *Cache) removeIfEmpty(key string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.entries[key]
	if !ok || cur != e {
		return
	}
	if !e.mu.TryLock() {
		return
	}
	empty := len(e.readings) == 0
	if empty {
		e.unlinked.Store(true)
	}
	e.mu.Unlock()
	if !empty {
		return
	}
	c.lru.Remove(e.elem)
	delete(c.entries, key)
}

// Size reports the number of distinct cities currently tracked.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Requests returns the counter for one city, zero if untracked.
func (c *Cache) Requests(city string) int64 {
	c.mu.Lock()
	e, ok := c.entries[Normalize(city)]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}
