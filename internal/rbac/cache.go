package rbac

import (
	"sync"
	"time"
)

// PermissionCache memoises effective permission sets per user.
//
// Implementations must be safe for concurrent use. A Put carries the
// generation observed before the underlying storage read so that a fill
// racing an invalidation can never resurrect a stale entry: correctness
// favours an extra cache miss over a stale grant.
type PermissionCache interface {
	// Generation returns the current fill generation. Callers snapshot it
	// before loading from storage and pass it to Put.
	Generation() uint64
	Get(userID int64) (EffectiveSet, bool)
	Put(userID int64, set EffectiveSet, gen uint64)
	InvalidateUser(userID int64)
	InvalidateAll()
}

type memoryEntry struct {
	set      EffectiveSet
	fillGen  uint64
	storedAt time.Time
}

// MemoryCache is the in-process PermissionCache used by the engine. It is an
// explicitly owned object constructed once per process and injected into the
// engine, so tests can run isolated instances side by side.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[int64]memoryEntry
	gen       uint64
	floor     uint64
	userFloor map[int64]uint64
	ttl       time.Duration
	now       func() time.Time
}

// NewMemoryCache constructs a MemoryCache. ttl is a safety net against missed
// invalidation call sites; zero disables it and explicit invalidation alone
// keeps the cache correct.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries:   make(map[int64]memoryEntry),
		userFloor: make(map[int64]uint64),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Generation returns the current fill generation.
func (c *MemoryCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Get returns the cached effective set for the user, if fresh.
func (c *MemoryCache) Get(userID int64) (EffectiveSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[userID]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl {
		return nil, false
	}
	return entry.set, true
}

// Put stores the set unless an invalidation newer than the fill generation
// has occurred, in which case the fill is discarded.
func (c *MemoryCache) Put(userID int64, set EffectiveSet, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen < c.floor {
		return
	}
	if userGen, ok := c.userFloor[userID]; ok {
		if gen < userGen {
			return
		}
		delete(c.userFloor, userID)
	}
	c.entries[userID] = memoryEntry{set: set, fillGen: gen, storedAt: c.now()}
}

// InvalidateUser drops one user's entry and fences in-flight fills for them.
func (c *MemoryCache) InvalidateUser(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.userFloor[userID] = c.gen
	delete(c.entries, userID)
}

// InvalidateAll drops every entry. Used when a role shared by an unknown set
// of users changes, since the cache keeps no reverse role index.
func (c *MemoryCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.floor = c.gen
	c.entries = make(map[int64]memoryEntry)
	c.userFloor = make(map[int64]uint64)
}

// Len reports the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ PermissionCache = (*MemoryCache)(nil)
