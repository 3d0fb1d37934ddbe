package verifycache

import (
	"log/slog"
	"time"

	"github.com/spf13/afero"
)

// WithFs sets a custom filesystem for the cache. Both the verified files
// and the persisted cache file are accessed through it.
// This is primarily useful for testing with in-memory filesystems.
//
// Example:
//
//	cache, err := verifycache.Open(".verifycache", verifycache.WithFs(afero.NewMemMapFs()))
func WithFs(fs afero.Fs) Option {
	return func(c *Cache) {
		c.fs = fs
	}
}

// WithNowFunc sets a custom time function for the cache.
// This is primarily useful for testing TTL expiry with deterministic timestamps.
func WithNowFunc(nowFunc NowFunc) Option {
	return func(c *Cache) {
		c.nowFunc = nowFunc
	}
}

// WithTTL sets the default maximum age of an entry. Get treats entries at
// least this old as misses. Defaults to five minutes; negative values make
// Open fail.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithMaxEntries bounds the number of entries kept. Inserting beyond the
// bound evicts the least recently used entries. Defaults to 1000.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// WithFileName overrides the name of the persisted cache file inside the
// cache directory. Defaults to "verification_cache.json".
func WithFileName(name string) Option {
	return func(c *Cache) {
		c.fileName = name
	}
}

// WithLogger sets the logger used to report degraded operation (corrupt
// cache files, failed saves, evictions). If nil, a discard logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}
