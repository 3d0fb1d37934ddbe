package verifycache

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// store is the recency-ordered entry map backing a Cache.
// Lookups through get promote the key; peek does not. Eviction always
// removes the least recently used key first, so ties resolve by insertion
// and access order alone.
//
// store is not safe for concurrent use.
type store struct {
	lru        *simplelru.LRU[string, *cacheEntry]
	maxEntries int
}

func newStore(maxEntries int) (*store, error) {
	lru, err := simplelru.NewLRU[string, *cacheEntry](maxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry store: %w", err)
	}
	return &store{lru: lru, maxEntries: maxEntries}, nil
}

// get returns the entry for key and marks it most recently used.
func (s *store) get(key string) (*cacheEntry, bool) {
	return s.lru.Get(key)
}

// peek returns the entry for key without touching recency.
func (s *store) peek(key string) (*cacheEntry, bool) {
	return s.lru.Peek(key)
}

// put inserts or replaces key as the most recently used entry and returns
// the keys evicted to stay within maxEntries, oldest first.
func (s *store) put(key string, entry *cacheEntry) []string {
	var evicted []string
	if !s.lru.Contains(key) {
		for s.lru.Len() >= s.maxEntries {
			oldest, _, ok := s.lru.RemoveOldest()
			if !ok {
				break
			}
			evicted = append(evicted, oldest)
		}
	}
	s.lru.Add(key, entry)
	return evicted
}

// remove deletes key and reports whether it was present.
func (s *store) remove(key string) bool {
	return s.lru.Remove(key)
}

func (s *store) clear() {
	s.lru.Purge()
}

func (s *store) len() int {
	return s.lru.Len()
}

// keys returns all keys from least to most recently used.
func (s *store) keys() []string {
	return s.lru.Keys()
}
