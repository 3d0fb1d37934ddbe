/*
Package verifycache provides a persistent, content-validated cache for file
verification results such as linter runs.

A linter invocation costs hundreds of milliseconds per file. When a file has
not changed since it was last verified, the previous result can be reused
in well under a millisecond. verifycache keeps those results keyed by
absolute file path and only returns one while the file content still hashes
to the same SHA-256 digest and the entry is younger than the TTL.

# Core Architecture

  - Content hashing: SHA-256 over the raw file bytes, with a modification-time
    shortcut that skips rereading files whose mtime is unchanged
  - Entry store: an LRU-ordered map bounded by MaxEntries
  - Persistence: the whole store is written to one JSON file after every
    mutating operation, via a temp file renamed over the target
  - Facade: Cache, guarding all of the above with a single mutex

# Basic Usage

Opening a cache:

	cache, err := verifycache.Open(".verifycache")
	if err != nil {
	    log.Fatalf("invalid cache configuration: %v", err)
	}
	defer cache.Close()

Checking before verifying:

	result, hit := cache.Get("src/app.py")
	if !hit {
	    result = runLinter("src/app.py")
	    cache.Put("src/app.py", result, verifycache.ModeFast)
	}

The cache never calls the verifier itself; callers check, verify on a miss,
and store the new result.

# Configuration Options

	cache, err := verifycache.Open(
	    ".verifycache",
	    verifycache.WithTTL(10*time.Minute),
	    verifycache.WithMaxEntries(5000),
	    verifycache.WithLogger(slog.Default()),
	)

Open only returns an error for invalid configuration (negative TTL,
non-positive capacity, bad file name), as a *ValidationError.

# Staleness Rules

An entry is a miss, and is removed, when:

  - its age is greater than or equal to the TTL
  - the file is gone or unreadable
  - the file's digest differs from the stored one

Expiry is lazy: nothing runs in the background, so the cache file may hold
expired entries until the next Get, PruneExpired or ValidateIntegrity.

The mtime shortcut is an approximation. A file rewritten without its
modification time changing keeps its old digest until the mtime moves or
ValidateIntegrity rehashes it.

# File Structure

	.verifycache/
	└── verification_cache.json

	{
	  "/abs/path/app.py": {
	    "file_hash": "<64 hex chars>",
	    "result": {"file_path": "...", "passed": true, "violations": [], "duration_ms": 180.5, "error": null},
	    "timestamp": "2025-01-01T12:00:00Z",
	    "mode": "fast",
	    "access_count": 3
	  }
	}

Entries are written least recently used first, and loading keeps that order.

# Error Handling

Operational failures never reach the caller. A corrupt cache file is
discarded, an unwritable directory turns the cache into an in-memory one,
and an unreadable file is simply not cached. Worst case, the caller runs
the verifier again.
*/
package verifycache
