package verifycache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestMain(t *testing.M) {
	code := t.Run()

	os.Exit(code)
}

func fixedNowFunc() time.Time {
	return time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
}

// fakeClock is a manually advanced clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: fixedNowFunc()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const testCacheDir = "/cache"

// setupTestCache creates an in-memory filesystem and a cache persisted
// under /cache, driven by a fake clock.
func setupTestCache(t *testing.T, options ...Option) (*Cache, afero.Fs, *fakeClock) {
	t.Helper()

	memFs := afero.NewMemMapFs()
	clock := newFakeClock()

	opts := append([]Option{WithFs(memFs), WithNowFunc(clock.Now)}, options...)
	cache, err := Open(testCacheDir, opts...)
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	return cache, memFs, clock
}

// createTestFile writes content to path, creating parent directories.
func createTestFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := afero.WriteFile(fs, path, content, 0o644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

// rewriteTestFile replaces the content of path and moves its mtime forward
// so the change is visible to the mtime shortcut.
func rewriteTestFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()

	info, err := fs.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat %s: %v", path, err)
	}
	createTestFile(t, fs, path, content)
	mtime := info.ModTime().Add(time.Second)
	if err := fs.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Failed to set mtime of %s: %v", path, err)
	}
}

// failingFs wraps a filesystem and injects write failures.
type failingFs struct {
	afero.Fs
	failRename   bool
	failTempFile bool
}

func (f *failingFs) Rename(oldname, newname string) error {
	if f.failRename {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
	}
	return f.Fs.Rename(oldname, newname)
}

func (f *failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if f.failTempFile && flag&os.O_EXCL != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *failingFs) Name() string {
	return "failingFs"
}
