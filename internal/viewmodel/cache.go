package viewmodel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/azure/outreach-dashboard/internal/models"
	"github.com/azure/outreach-dashboard/internal/monitoring"
	"github.com/sirupsen/logrus"
)

// State is the lifecycle of a view handle
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Key identifies one cached view
type Key struct {
	Domain models.Domain
	Kind   monitoring.ViewKind
	Filter string
}

// ViewHandle is what observers see of a view
type ViewHandle struct {
	State     State     `json:"state"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// CacheStats counts cache activity since start
type CacheStats struct {
	Entries       int   `json:"entries"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Invalidations int64 `json:"invalidations"`
	Discarded     int64 `json:"discarded"`
}

type entry struct {
	state     State
	value     any
	err       error
	updatedAt time.Time
}

type kindKey struct {
	domain models.Domain
	kind   monitoring.ViewKind
}

// ViewCache holds the computed views of both domains. Entries are never
// patched: a mutation drops every entry of the kinds it affects, whatever
// their filter, and the next read recomputes from the store.
//
// A kind is unreliable from the start of a mutation touching it until the
// mutation's outcome is known. Reads in that window go to the store and are
// not cached; a read that started before a successful mutation ended is
// discarded too.
type ViewCache struct {
	mu       sync.Mutex
	entries  map[Key]*entry
	epochs   map[kindKey]uint64
	inflight map[kindKey]int
	stats    CacheStats
	now      func() time.Time
}

// NewViewCache creates an empty cache
func NewViewCache() *ViewCache {
	return &ViewCache{
		entries:  make(map[Key]*entry),
		epochs:   make(map[kindKey]uint64),
		inflight: make(map[kindKey]int),
		now:      time.Now,
	}
}

func (k Key) kind() kindKey { return kindKey{domain: k.Domain, kind: k.Kind} }

// Handle reports the tri-state of a view. A view never read is loading.
func (c *ViewCache) Handle(key Key) ViewHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return ViewHandle{State: StateLoading}
	}
	h := ViewHandle{State: e.state, UpdatedAt: e.updatedAt}
	if e.err != nil {
		h.Error = e.err.Error()
	}
	return h
}

// Stats returns a snapshot of cache counters
func (c *ViewCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// Invalidate drops every entry of the listed kinds, whatever their filter
func (c *ViewCache) Invalidate(inv monitoring.Invalidation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked(inv)
}

func (c *ViewCache) invalidateLocked(inv monitoring.Invalidation) {
	for _, kind := range inv.Views {
		kk := kindKey{domain: inv.Domain, kind: kind}
		c.epochs[kk]++
		for key := range c.entries {
			if key.kind() == kk {
				delete(c.entries, key)
			}
		}
	}
	c.stats.Invalidations++
	logrus.Debugf("Invalidated %s views %v", inv.Domain, inv.Views)
}

func (c *ViewCache) begin(inv monitoring.Invalidation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range inv.Views {
		c.inflight[kindKey{domain: inv.Domain, kind: kind}]++
	}
}

func (c *ViewCache) end(inv monitoring.Invalidation, committed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range inv.Views {
		kk := kindKey{domain: inv.Domain, kind: kind}
		if c.inflight[kk]--; c.inflight[kk] <= 0 {
			delete(c.inflight, kk)
		}
	}
	if committed {
		c.invalidateLocked(inv)
	}
}

// Mutate runs fn while the views listed in inv are marked unreliable. When fn
// commits anything (success or a partial batch) those views are invalidated;
// a plain failure leaves them as they were.
func Mutate[T any](ctx context.Context, c *ViewCache, inv monitoring.Invalidation, fn func(context.Context) (T, error)) (T, error) {
	c.begin(inv)
	result, err := fn(ctx)
	c.end(inv, err == nil || errors.Is(err, models.ErrPartialBatchFailure))
	return result, err
}

// Load returns the cached value of key or computes it with fetch
func Load[T any](ctx context.Context, c *ViewCache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	kk := key.kind()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.state == StateReady && c.inflight[kk] == 0 {
		c.stats.Hits++
		value := e.value.(T)
		c.mu.Unlock()
		return value, nil
	}
	c.stats.Misses++
	epoch := c.epochs[kk]
	if e, ok := c.entries[key]; ok {
		e.state = StateLoading
	} else {
		c.entries[key] = &entry{state: StateLoading}
	}
	c.mu.Unlock()

	value, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epochs[kk] != epoch || c.inflight[kk] > 0 {
		c.stats.Discarded++
		if e, ok := c.entries[key]; ok && e.state == StateLoading {
			delete(c.entries, key)
		}
		return value, err
	}

	if err != nil {
		c.entries[key] = &entry{state: StateError, err: err, updatedAt: c.now()}
		return value, err
	}
	c.entries[key] = &entry{state: StateReady, value: value, updatedAt: c.now()}
	return value, nil
}
