package verifycache

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// maxLinkHops bounds how many dangling symlinks resolvePath follows.
const maxLinkHops = 40

// canonicalKey maps a path to the absolute, cleaned form used as an entry
// key, so one file never ends up under two keys. Symlinks are resolved
// only on the OS filesystem; other afero backends have no link semantics
// shared with the host.
func canonicalKey(fs afero.Fs, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if _, ok := fs.(*afero.OsFs); !ok {
		return abs
	}
	return resolvePath(abs, maxLinkHops)
}

// resolvePath resolves the symlinks in abs. Trailing components that do
// not exist are joined unresolved onto their deepest existing ancestor,
// and a dangling symlink is followed to its target, so a path keeps the
// same key after the file it names is deleted.
func resolvePath(abs string, hops int) string {
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if hops > 0 {
		if target, err := os.Readlink(abs); err == nil {
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(abs), target)
			}
			return resolvePath(filepath.Clean(target), hops-1)
		}
	}
	dir := filepath.Dir(abs)
	if dir == abs {
		return abs
	}
	return filepath.Join(resolvePath(dir, hops), filepath.Base(abs))
}
