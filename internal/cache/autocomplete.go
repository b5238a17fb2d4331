package cache

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
)

const (
	maxEntries    = 512
	evictFraction = 0.25
)

// AutocompleteKey identifies one cached autocomplete response, per spec.md
// §4.E: lower-cased query, entity type, and result limit.
type AutocompleteKey struct {
	Query string
	Type  string
	Limit int
}

func (k AutocompleteKey) String() string {
	return fmt.Sprintf("%s|%s|%d", strings.ToLower(k.Query), k.Type, k.Limit)
}

// AutocompleteCache is a bounded, insertion-ordered map. Once it holds
// maxEntries, a Put evicts the oldest 25% before inserting, per spec.md
// §4.E. Reads/writes are serialized by mutex even though the spec notes a
// single cooperative worker would make that trivially safe — nothing about
// the handler's actual concurrency model guarantees single-threadedness.
type AutocompleteCache struct {
	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry struct {
	key   string
	value any
}

func NewAutocompleteCache() *AutocompleteCache {
	return &AutocompleteCache{
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (c *AutocompleteCache) Get(key AutocompleteKey) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key.String()]
	if !ok {
		return nil, false
	}
	return elem.Value.(*cacheEntry).value, true
}

func (c *AutocompleteCache) Put(key AutocompleteKey, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key.String()
	if elem, ok := c.entries[k]; ok {
		elem.Value.(*cacheEntry).value = value
		return
	}

	if c.order.Len() >= maxEntries {
		c.evictOldestLocked()
	}

	elem := c.order.PushBack(&cacheEntry{key: k, value: value})
	c.entries[k] = elem
}

// evictOldestLocked removes the oldest 25% of entries. Caller holds c.mu.
func (c *AutocompleteCache) evictOldestLocked() {
	toEvict := int(float64(maxEntries) * evictFraction)
	if toEvict < 1 {
		toEvict = 1
	}
	for i := 0; i < toEvict && c.order.Len() > 0; i++ {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *AutocompleteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
