// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package service

import (
	"sync"

	"github.com/avoskov/archivemind/models"
)

// CacheKey addresses one in-memory read view. ID=="" is the list view of
// the kind; a non-empty ID is a single-resource detail view.
type CacheKey struct {
	Kind models.Kind
	ID   string
}

// ListKey returns the list-view key of a kind.
func ListKey(kind models.Kind) CacheKey {
	return CacheKey{Kind: kind}
}

// AffectedKeys returns every cache key a mutation of (kind, id) could touch:
// the kind's list view plus the resource's detail view.
func AffectedKeys(kind models.Kind, id string) []CacheKey {
	keys := []CacheKey{ListKey(kind)}
	if id != "" {
		keys = append(keys, CacheKey{Kind: kind, ID: id})
	}
	return keys
}

type cacheEntry struct {
	value      any
	present    bool
	generation uint64
}

// Cache is the in-memory read cache the optimistic mutation layer writes
// through. Every key carries a generation counter used to fence slow
// background fetches: a fetch records the generation before going to the
// network, and its result is dropped if the generation moved on - which is
// exactly what BeginMutation does, so a stale response can never overwrite
// a fresher optimistic value.
type Cache struct {
	mu      sync.Mutex
	entries map[CacheKey]*cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[CacheKey]*cacheEntry)}
}

// Snapshot holds restorable pre-mutation copies of a set of keys.
type Snapshot struct {
	items map[CacheKey]cacheEntry
}

// Get returns the cached value for key, if any.
func (c *Cache) Get(key CacheKey) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.present {
		return nil, false
	}
	return e.value, true
}

// Put stores value and bumps the key's generation, superseding in-flight
// fetches.
func (c *Cache) Put(key CacheKey, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(key)
	e.value = value
	e.present = true
	e.generation++
}

// Generation returns the key's current generation. Callers record it before
// starting a fetch and pass it back to CompleteFetch.
func (c *Cache) Generation(key CacheKey) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry(key).generation
}

// CompleteFetch stores a fetched value only if the key's generation still
// matches gen. Returns false when the fetch was fenced out by a mutation
// (or a newer fetch) that happened while it was in flight.
func (c *Cache) CompleteFetch(key CacheKey, gen uint64, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(key)
	if e.generation != gen {
		return false
	}
	e.value = value
	e.present = true
	return true
}

// BeginMutation bumps the generation of every key (fencing out in-flight
// fetches) and returns an independently restorable snapshot of their
// pre-mutation values.
func (c *Cache) BeginMutation(keys []CacheKey) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{items: make(map[CacheKey]cacheEntry, len(keys))}
	for _, key := range keys {
		e := c.entry(key)
		snap.items[key] = *e
		e.generation++
	}
	return snap
}

// Restore rolls every snapshotted key back to its pre-mutation value. The
// generation keeps moving forward so that fetches started during the failed
// mutation stay fenced out.
func (c *Cache) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, old := range snap.items {
		e := c.entry(key)
		e.value = old.value
		e.present = old.present
		e.generation++
	}
}

// Invalidate drops the values of the given keys, forcing the next read to
// fetch.
func (c *Cache) Invalidate(keys ...CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		e := c.entry(key)
		e.value = nil
		e.present = false
		e.generation++
	}
}

// InvalidateKind drops every view of the kind, list and details alike.
func (c *Cache) InvalidateKind(kind models.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if key.Kind == kind {
			e.value = nil
			e.present = false
			e.generation++
		}
	}
}

// ReplaceID rekeys a detail view from a client temp id to the server id.
// The list view is left to the caller, which knows the element type.
func (c *Cache) ReplaceID(kind models.Kind, oldID, newID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldKey := CacheKey{Kind: kind, ID: oldID}
	e, ok := c.entries[oldKey]
	if !ok {
		return
	}
	delete(c.entries, oldKey)

	moved := c.entry(CacheKey{Kind: kind, ID: newID})
	moved.value = e.value
	moved.present = e.present
	moved.generation++
}

// entry returns the entry for key, creating it on first touch. Callers hold
// the lock.
func (c *Cache) entry(key CacheKey) *cacheEntry {
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	return e
}
