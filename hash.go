package verifycache

import (
	_ "crypto/sha256" // registers SHA-256 for go-digest
	"fmt"
	"hash"
	"io"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/afero"
)

// Default size for the buffer used when hashing files
const defaultBufferSize = 32 * 1024 // 32KB

// bufferPool is a pool of byte slices used for file I/O during hashing
var bufferPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, defaultBufferSize)
		return &buffer
	},
}

// hashFile hashes the content from a reader using the provided hash function.
func hashFile(content io.Reader, h hash.Hash) error {
	bufPtr := bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer bufferPool.Put(bufPtr)

	_, err := io.CopyBuffer(h, content, buffer)
	if err != nil {
		return fmt.Errorf("failed to copy content: %w", err)
	}
	return nil
}

// hashRecord remembers the digest computed for a file at a given mtime.
type hashRecord struct {
	modTime time.Time
	digest  string
}

// hasher computes SHA-256 content fingerprints of files.
//
// When a file's modification time matches the one recorded at the last
// computation, the recorded digest is returned without reading the file.
// A file rewritten without its mtime changing (coarse timestamps, tools
// that preserve mtime) therefore yields a stale digest. That is an accepted
// trade-off: the shortcut is what keeps repeat lookups cheap.
//
// hasher is not safe for concurrent use; Cache serializes access under its lock.
type hasher struct {
	fs    afero.Fs
	known map[string]hashRecord
}

func newHasher(fs afero.Fs) *hasher {
	return &hasher{
		fs:    fs,
		known: make(map[string]hashRecord),
	}
}

// sum returns the hex digest of path, consulting the mtime shortcut.
// It reports false when the file is missing, a directory, or unreadable.
func (h *hasher) sum(path string) (string, bool) {
	return h.compute(path, false)
}

// rehash is sum without the mtime shortcut.
func (h *hasher) rehash(path string) (string, bool) {
	return h.compute(path, true)
}

func (h *hasher) compute(path string, force bool) (string, bool) {
	info, err := h.fs.Stat(path)
	if err != nil || info.IsDir() {
		delete(h.known, path)
		return "", false
	}
	modTime := info.ModTime()

	if !force {
		if rec, ok := h.known[path]; ok && rec.modTime.Equal(modTime) {
			return rec.digest, true
		}
	}

	file, err := h.fs.Open(path)
	if err != nil {
		delete(h.known, path)
		return "", false
	}
	defer file.Close()

	digester := digest.SHA256.Digester()
	if err := hashFile(file, digester.Hash()); err != nil {
		delete(h.known, path)
		return "", false
	}

	sum := digester.Digest().Encoded()
	h.known[path] = hashRecord{modTime: modTime, digest: sum}
	return sum, true
}

// forget drops the shortcut record for path.
func (h *hasher) forget(path string) {
	delete(h.known, path)
}

// reset drops every shortcut record.
func (h *hasher) reset() {
	h.known = make(map[string]hashRecord)
}

// validDigest reports whether s is a well-formed SHA-256 hex digest.
func validDigest(s string) bool {
	return digest.SHA256.Validate(s) == nil
}
