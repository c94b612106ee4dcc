// Package cache provides the content-addressed audio cache: a byte-budget
// LRU index over a pluggable byte store, with single-flight coordination so
// concurrent requests for the same key synthesize at most once.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/vietvoice/vietvoice/internal/ttypes"
)

// KeyVersion prefixes every cache key so the key scheme can change without
// old entries being misread.
const KeyVersion = "v1"

// ErrEntryTooLarge is returned when a payload exceeds the whole cache budget.
var ErrEntryTooLarge = errors.New("audio larger than cache capacity")

// Entry is one cached synthesis result. Audio is immutable once written;
// entries are only ever created and evicted, never mutated in place.
type Entry struct {
	Key          string
	Audio        []byte
	Size         int64
	BackendID    string // provenance: which backend produced the audio
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Stats reports cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Items     int
	Size      int64
	Capacity  int64
	HitRate   float64
}

// Cache is the content-addressed audio cache. Safe for concurrent use.
type Cache struct {
	capacity int64
	store    ByteStore
	logger   *log.Logger

	flight singleflight.Group

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List // front = most recently used
	size     int64

	hits      int64
	misses    int64
	evictions int64
}

// indexEntry is the LRU bookkeeping for one key; audio bytes live in the store.
type indexEntry struct {
	key          string
	size         int64
	backendID    string
	createdAt    time.Time
	lastAccessed time.Time
}

// sizeLister is implemented by stores that can enumerate existing entries,
// letting a new cache adopt audio left behind by a previous run.
type sizeLister interface {
	Sizes() map[string]int64
}

// New creates a cache with the given byte budget over the given store.
// Entries already present in the store are indexed so they stay reachable
// across process restarts; their backend provenance is unknown.
func New(store ByteStore, capacity int64, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	c := &Cache{
		capacity: capacity,
		store:    store,
		logger:   logger,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
	if lister, ok := store.(sizeLister); ok {
		c.mu.Lock()
		now := time.Now()
		for key, size := range lister.Sizes() {
			idx := &indexEntry{key: key, size: size, createdAt: now, lastAccessed: now}
			c.items[key] = c.eviction.PushFront(idx)
			c.size += size
		}
		c.evictLocked()
		c.mu.Unlock()
	}
	return c
}

// Key computes the deterministic cache key for canonical text and the voice
// fields that affect audible output. The preferred backend is deliberately
// excluded: it changes provenance, not the requested audio.
func Key(canonicalText string, voice ttypes.VoiceConfig) string {
	input := fmt.Sprintf("%s|%.2f|%.2f|%s", canonicalText, voice.Speed, voice.Pitch, voice.Quality)
	sum := sha256.Sum256([]byte(input))
	return KeyVersion + "_" + hex.EncodeToString(sum[:])
}

// Get returns the entry for key, refreshing its recency, or (nil, false) on
// a miss. A store read failure drops the entry and counts as a miss.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.misses++
		c.mu.Unlock()
		return nil, false
	}
	idx := elem.Value.(*indexEntry)
	idx.lastAccessed = time.Now()
	c.eviction.MoveToFront(elem)
	entry := &Entry{
		Key:          idx.key,
		Size:         idx.size,
		BackendID:    idx.backendID,
		CreatedAt:    idx.createdAt,
		LastAccessed: idx.lastAccessed,
	}
	c.mu.Unlock()

	audio, found, err := c.store.Get(key)
	if err != nil || !found {
		if err != nil {
			c.logger.Warn("cache read failed, dropping entry", "key", key, "error", err)
		}
		c.remove(key)
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	entry.Audio = audio
	return entry, true
}

// Put stores audio for key with its backend provenance and evicts
// least-recently-used entries until the cache fits its budget again.
func (c *Cache) Put(key string, audio []byte, backendID string) error {
	size := int64(len(audio))
	if size > c.capacity {
		return ErrEntryTooLarge
	}
	if err := c.store.Put(key, audio); err != nil {
		return fmt.Errorf("store audio: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if elem, ok := c.items[key]; ok {
		idx := elem.Value.(*indexEntry)
		c.size += size - idx.size
		idx.size = size
		idx.backendID = backendID
		idx.lastAccessed = now
		c.eviction.MoveToFront(elem)
	} else {
		idx := &indexEntry{
			key:          key,
			size:         size,
			backendID:    backendID,
			createdAt:    now,
			lastAccessed: now,
		}
		c.items[key] = c.eviction.PushFront(idx)
		c.size += size
	}

	c.evictLocked()
	return nil
}

// Flight runs fn exactly once per key among concurrent callers; every caller
// observes the same result. A failed computation is forgotten once delivered,
// so the next request for the key starts from scratch.
func (c *Cache) Flight(key string, fn func() (*Entry, error)) (*Entry, bool, error) {
	v, err, shared := c.flight.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, shared, err
	}
	return v.(*Entry), shared, nil
}

// Delete removes a single entry.
func (c *Cache) Delete(key string) error {
	c.remove(key)
	return nil
}

// Purge removes every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		_ = c.store.Delete(key)
	}
	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
}

// Size returns the tracked payload size in bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Items:     len(c.items),
		Size:      c.size,
		Capacity:  c.capacity,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func (c *Cache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return
	}
	c.removeLocked(elem)
}

func (c *Cache) removeLocked(elem *list.Element) {
	idx := elem.Value.(*indexEntry)
	delete(c.items, idx.key)
	c.eviction.Remove(elem)
	c.size -= idx.size
	_ = c.store.Delete(idx.key)
}

// evictLocked drops least-recently-used entries until size fits capacity.
func (c *Cache) evictLocked() {
	for c.size > c.capacity && c.eviction.Len() > 0 {
		back := c.eviction.Back()
		idx := back.Value.(*indexEntry)
		c.logger.Debug("evicting cache entry",
			"key", idx.key,
			"size", idx.size,
			"lastAccessed", idx.lastAccessed)
		c.removeLocked(back)
		c.evictions++
	}
}
