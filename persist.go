package verifycache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// record is the persisted JSON form of a cache entry.
type record struct {
	FileHash    string `json:"file_hash"`
	Result      Result `json:"result"`
	Timestamp   string `json:"timestamp"`
	Mode        Mode   `json:"mode"`
	AccessCount int    `json:"access_count"`
}

// timestampLayouts are tried in order when parsing a stored timestamp.
// Values without a zone are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func newRecord(e *cacheEntry) record {
	return record{
		FileHash:    e.contentHash,
		Result:      e.result,
		Timestamp:   formatTimestamp(e.storedAt),
		Mode:        e.mode,
		AccessCount: e.accessCount,
	}
}

func (r record) entry() (*cacheEntry, error) {
	if !validDigest(r.FileHash) {
		return nil, fmt.Errorf("invalid file hash %q", r.FileHash)
	}
	storedAt, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return nil, err
	}
	if r.AccessCount < 0 {
		return nil, fmt.Errorf("negative access count %d", r.AccessCount)
	}
	return &cacheEntry{
		contentHash: r.FileHash,
		result:      r.Result,
		storedAt:    storedAt,
		mode:        r.Mode,
		accessCount: r.AccessCount,
	}, nil
}

// keyedEntry pairs an entry with its key, preserving store order.
type keyedEntry struct {
	key   string
	entry *cacheEntry
}

// encodeEntries renders entries as an indented JSON object whose members
// keep the order of the slice.
func encodeEntries(entries []keyedEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ke := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ke.key)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal key %s: %w", ke.key, err)
		}
		value, err := json.Marshal(newRecord(ke.entry))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entry %s: %w", ke.key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent cache file: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// decodeEntries parses a cache file, keeping member order. A structurally
// broken document is an error; individual entries with invalid fields are
// skipped and logged.
func decodeEntries(data []byte, logger *slog.Logger) ([]keyedEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("cache file is not a JSON object")
	}

	var entries []keyedEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read entry key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var rec record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode entry %s: %w", key, err)
		}
		entry, err := rec.entry()
		if err != nil {
			logger.Warn("skipping invalid cache entry", "path", key, "error", err)
			continue
		}
		entries = append(entries, keyedEntry{key: key, entry: entry})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read end of cache file: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after cache object")
	}
	return entries, nil
}

// fileStore reads and writes the cache file inside a cache directory.
type fileStore struct {
	fs     afero.Fs
	dir    string
	path   string
	logger *slog.Logger
}

func newFileStore(fs afero.Fs, dir, fileName string, logger *slog.Logger) *fileStore {
	return &fileStore{
		fs:     fs,
		dir:    dir,
		path:   filepath.Join(dir, fileName),
		logger: logger,
	}
}

// tempPrefix and tempSuffix frame the names of in-flight writes.
func (p *fileStore) tempPrefix() string {
	return "." + filepath.Base(p.path) + "-"
}

const tempSuffix = ".tmp"

// prepare creates the cache directory and removes temp files left by
// interrupted saves.
func (p *fileStore) prepare() error {
	if err := p.fs.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	infos, err := afero.ReadDir(p.fs, p.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	prefix := p.tempPrefix()
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, tempSuffix) {
			continue
		}
		if err := p.fs.Remove(filepath.Join(p.dir, name)); err != nil {
			p.logger.Debug("failed to remove stale temp file", "file", name, "error", err)
		}
	}
	return nil
}

// load returns the persisted entries in stored order. A missing file
// yields no entries and no error.
func (p *fileStore) load() ([]keyedEntry, error) {
	data, err := afero.ReadFile(p.fs, p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return decodeEntries(data, p.logger)
}

// save writes entries to a temp file in the cache directory and renames
// it over the cache file, so readers only ever see a complete file.
func (p *fileStore) save(entries []keyedEntry) error {
	data, err := encodeEntries(entries)
	if err != nil {
		return err
	}

	tmp, err := afero.TempFile(p.fs, p.dir, p.tempPrefix()+"*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = p.fs.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = p.fs.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = p.fs.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := p.fs.Rename(tmpPath, p.path); err != nil {
		_ = p.fs.Remove(tmpPath)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
