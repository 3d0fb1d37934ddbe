package verifycache

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Defaults applied by Open.
const (
	DefaultTTL        = 300 * time.Second
	DefaultMaxEntries = 1000
	DefaultFileName   = "verification_cache.json"
)

// NowFunc defines a function that returns the current time.
type NowFunc func() time.Time

// Option defines a function that configures a Cache.
type Option func(*Cache)

// Cache stores verification results keyed by file path and validated
// against the file's current content hash and the entry's age.
//
// All operations serialize on a single mutex, including the write of the
// cache file, so a Cache is safe for concurrent use by multiple goroutines.
// Only one Cache (in one process) should own a given directory.
type Cache struct {
	dir        string
	fileName   string
	ttl        time.Duration
	maxEntries int
	nowFunc    NowFunc
	fs         afero.Fs
	logger     *slog.Logger

	mu      sync.Mutex
	entries *store
	hashes  *hasher
	file    *fileStore // nil when running in memory only

	hits        int64
	misses      int64
	evictions   int64
	failedSaves int64
}

// Open creates a cache persisted in dir and loads any previously saved
// entries. The directory is created if needed.
//
// Open only fails on invalid configuration, returning a *ValidationError.
// An unusable directory or a corrupt cache file is logged and the cache
// starts empty; if the directory cannot be created, the cache runs in
// memory only. An empty dir also selects in-memory operation.
func Open(dir string, options ...Option) (*Cache, error) {
	cache := &Cache{
		fileName:   DefaultFileName,
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		nowFunc:    time.Now,
		fs:         afero.NewOsFs(),
	}

	// Apply options
	for _, option := range options {
		option(cache)
	}

	if err := cache.validate(); err != nil {
		return nil, err
	}

	entries, err := newStore(cache.maxEntries)
	if err != nil {
		return nil, err
	}
	cache.entries = entries
	cache.hashes = newHasher(cache.fs)

	if dir == "" {
		return cache, nil
	}
	cache.dir = canonicalKey(cache.fs, dir)

	file := newFileStore(cache.fs, cache.dir, cache.fileName, cache.log())
	if err := file.prepare(); err != nil {
		cache.log().Warn("cache directory unavailable, continuing in memory", "dir", cache.dir, "error", err)
		return cache, nil
	}
	cache.file = file

	loaded, err := file.load()
	if err != nil {
		cache.log().Warn("discarding unreadable cache file", "file", file.path, "error", err)
		return cache, nil
	}
	for _, ke := range loaded {
		cache.entries.put(canonicalKey(cache.fs, ke.key), ke.entry)
	}
	cache.log().Debug("loaded verification cache", "file", file.path, "entries", cache.entries.len())

	return cache, nil
}

func (c *Cache) validate() error {
	var errs []error
	if c.ttl < 0 {
		errs = append(errs, fmt.Errorf("%w: %s is negative", ErrInvalidTTL, c.ttl))
	}
	if c.maxEntries <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d must be positive", ErrInvalidMaxEntries, c.maxEntries))
	}
	if c.fileName == "" || c.fileName == "." || c.fileName == ".." ||
		strings.ContainsAny(c.fileName, `/\`) || c.fileName != filepath.Base(c.fileName) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidFileName, c.fileName))
	}
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	if c.nowFunc == nil {
		c.nowFunc = time.Now
	}
	return newValidationError(errs)
}

// Get returns the cached result for path if the entry is younger than the
// configured TTL and the file content still matches. Stale entries are
// removed and the removal is persisted.
//
// A hit updates recency and the access count in memory only. They reach
// the cache file with the next mutating operation or Flush/Close, so a
// crash loses the access counts of hits since the last write.
func (c *Cache) Get(path string) (Result, bool) {
	return c.GetWithTTL(path, c.ttl)
}

// GetWithTTL is Get with an explicit maximum age. An entry whose age is
// greater than or equal to ttl is expired.
func (c *Cache) GetWithTTL(path string, ttl time.Duration) (Result, bool) {
	key := canonicalKey(c.fs, path)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.peek(key)
	if !ok {
		c.misses++
		return Result{}, false
	}

	if entry.expired(c.now(), ttl) {
		c.dropLocked(key, "expired")
		return Result{}, false
	}

	sum, ok := c.hashes.sum(key)
	if !ok {
		c.dropLocked(key, "unreadable")
		return Result{}, false
	}
	if sum != entry.contentHash {
		c.dropLocked(key, "content changed")
		return Result{}, false
	}

	c.entries.get(key)
	entry.accessCount++
	c.hits++
	return entry.result.clone(), true
}

// dropLocked removes a stale entry found during lookup and counts a miss.
func (c *Cache) dropLocked(key, reason string) {
	c.entries.remove(key)
	c.misses++
	c.log().Debug("dropping stale cache entry", "path", key, "reason", reason)
	c.persistLocked()
}

// Put caches result for path under the file's current content hash and
// persists the cache. If the file cannot be hashed nothing is cached and
// Put returns false.
func (c *Cache) Put(path string, result Result, mode Mode) bool {
	key := canonicalKey(c.fs, path)

	c.mu.Lock()
	defer c.mu.Unlock()

	sum, ok := c.hashes.sum(key)
	if !ok {
		c.log().Debug("not caching result for unreadable file", "path", key)
		return false
	}

	entry := &cacheEntry{
		contentHash: sum,
		result:      result.clone(),
		storedAt:    c.now().UTC(),
		mode:        mode,
	}
	for _, evicted := range c.entries.put(key, entry) {
		c.evictions++
		c.hashes.forget(evicted)
		c.log().Debug("evicted least recently used entry", "path", evicted)
	}

	c.persistLocked()
	return true
}

// Invalidate removes the entry for path, if any, and persists the cache.
func (c *Cache) Invalidate(path string) {
	key := canonicalKey(c.fs, path)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.remove(key)
	c.hashes.forget(key)
	c.persistLocked()
}

// Clear removes every entry and persists the empty cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.clear()
	c.hashes.reset()
	c.persistLocked()
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.len()
}

// Flush writes the current entries to the cache file and reports whether
// the write succeeded. It returns false for in-memory caches.
func (c *Cache) Flush() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocked()
}

// Close flushes the cache. Access counts of hits since the last mutation
// are only written here or by the next mutating operation.
func (c *Cache) Close() error {
	c.Flush()
	return nil
}

// Dir returns the cache directory, or an empty string for in-memory caches.
func (c *Cache) Dir() string {
	return c.dir
}

// FilePath returns the location of the cache file, or an empty string if
// the cache is not persistent.
func (c *Cache) FilePath() string {
	if c.file == nil {
		return ""
	}
	return c.file.path
}

// persistLocked saves the store. Failures are logged and counted; the
// cache keeps working from memory.
func (c *Cache) persistLocked() bool {
	if c.file == nil {
		return false
	}
	if err := c.file.save(c.snapshotLocked()); err != nil {
		c.failedSaves++
		c.log().Warn("failed to persist verification cache", "file", c.file.path, "error", err)
		return false
	}
	return true
}

// snapshotLocked lists entries from least to most recently used.
func (c *Cache) snapshotLocked() []keyedEntry {
	keys := c.entries.keys()
	out := make([]keyedEntry, 0, len(keys))
	for _, key := range keys {
		if entry, ok := c.entries.peek(key); ok {
			out = append(out, keyedEntry{key: key, entry: entry})
		}
	}
	return out
}

// now returns the current time.
func (c *Cache) now() time.Time {
	return c.nowFunc()
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Cache) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
