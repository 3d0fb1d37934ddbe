package verifycache

import (
	"time"
)

// Stats represents cache statistics.
type Stats struct {
	Entries     int           `json:"entries"`     // Current number of entries
	MaxEntries  int           `json:"maxEntries"`  // Configured capacity
	TTL         time.Duration `json:"-"`           // Configured maximum age
	TTLSeconds  float64       `json:"ttlSeconds"`  // TTL in seconds, for display
	Hits        int64         `json:"hits"`        // Successful lookups since Open
	Misses      int64         `json:"misses"`      // Failed lookups since Open
	Evictions   int64         `json:"evictions"`   // Entries dropped to honor MaxEntries
	FailedSaves int64         `json:"failedSaves"` // Cache file writes that failed
	CacheFile   string        `json:"cacheFile"`   // Empty for in-memory caches
	Persistent  bool          `json:"persistent"`
}

// HitRate returns hits divided by lookups, or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Entry describes a single cache entry for listing.
type Entry struct {
	Path        string    `json:"path"`
	ContentHash string    `json:"contentHash"`
	Mode        Mode      `json:"mode"`
	StoredAt    time.Time `json:"storedAt"`
	AccessCount int       `json:"accessCount"`
	Passed      bool      `json:"passed"`
}

// IntegrityReport lists the entries ValidateIntegrity removed, by cause.
type IntegrityReport struct {
	Checked      int      `json:"checked"`
	Valid        int      `json:"valid"`
	Orphaned     []string `json:"orphaned"`      // File no longer exists
	HashMismatch []string `json:"hash_mismatch"` // File content changed
	Expired      []string `json:"expired"`       // Older than the configured TTL
}

// Removed returns the number of entries dropped.
func (r IntegrityReport) Removed() int {
	return len(r.Orphaned) + len(r.HashMismatch) + len(r.Expired)
}

// Stats returns statistics about the cache.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Entries:     c.entries.len(),
		MaxEntries:  c.maxEntries,
		TTL:         c.ttl,
		TTLSeconds:  c.ttl.Seconds(),
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		FailedSaves: c.failedSaves,
		CacheFile:   c.FilePath(),
		Persistent:  c.file != nil,
	}
}

// Entries returns all entries from least to most recently used.
// Listing does not affect recency.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.snapshotLocked()
	entries := make([]Entry, 0, len(snapshot))
	for _, ke := range snapshot {
		entries = append(entries, Entry{
			Path:        ke.key,
			ContentHash: ke.entry.contentHash,
			Mode:        ke.entry.mode,
			StoredAt:    ke.entry.storedAt,
			AccessCount: ke.entry.accessCount,
			Passed:      ke.entry.result.Passed,
		})
	}
	return entries
}

// PruneExpired removes entries older than the configured TTL.
// Returns the number of entries removed.
func (c *Cache) PruneExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for _, ke := range c.snapshotLocked() {
		if ke.entry.expired(now, c.ttl) {
			c.entries.remove(ke.key)
			c.hashes.forget(ke.key)
			count++
		}
	}

	if count > 0 {
		c.persistLocked()
	}
	return count
}

// ValidateIntegrity checks every entry against the filesystem and the
// configured TTL, removes the invalid ones and persists the result.
// Content is always rehashed, bypassing the modification-time shortcut.
// An entry is classified by the first failing check: missing file,
// changed content, then age.
func (c *Cache) ValidateIntegrity() IntegrityReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := IntegrityReport{
		Orphaned:     []string{},
		HashMismatch: []string{},
		Expired:      []string{},
	}

	now := c.now()
	for _, ke := range c.snapshotLocked() {
		report.Checked++

		var bucket *[]string
		if _, err := c.fs.Stat(ke.key); err != nil {
			bucket = &report.Orphaned
		} else if sum, ok := c.hashes.rehash(ke.key); !ok || sum != ke.entry.contentHash {
			bucket = &report.HashMismatch
		} else if ke.entry.expired(now, c.ttl) {
			bucket = &report.Expired
		}

		if bucket == nil {
			report.Valid++
			continue
		}
		*bucket = append(*bucket, ke.key)
		c.entries.remove(ke.key)
		c.hashes.forget(ke.key)
	}

	c.persistLocked()

	if removed := report.Removed(); removed > 0 {
		c.log().Info("removed invalid cache entries",
			"orphaned", len(report.Orphaned),
			"hash_mismatch", len(report.HashMismatch),
			"expired", len(report.Expired))
	}
	return report
}
