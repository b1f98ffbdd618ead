package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// FileExt is the extension of cache files.
const FileExt = ".memo"

// DiskCache is the persistent tier. Every namespaced key maps to one file at
// {root}/{kind}/{key}.memo holding exactly the encoded value. Files never
// expire; they are removed by Remove or Purge only.
type DiskCache struct {
	root   string
	fs     afero.Fs
	logger *log.Logger
}

// Entry describes a cache file on disk.
type Entry struct {
	Kind    string
	Key     string
	Path    string
	Size    int64
	ModTime time.Time
}

// DiskOption customizes a DiskCache.
type DiskOption func(*DiskCache)

// WithDiskFs sets the filesystem. Defaults to the OS filesystem.
func WithDiskFs(fsys afero.Fs) DiskOption {
	return func(dc *DiskCache) { dc.fs = fsys }
}

// WithDiskLogger sets the logger.
func WithDiskLogger(l *log.Logger) DiskOption {
	return func(dc *DiskCache) { dc.logger = l }
}

// NewDiskCache creates a disk cache rooted at root. Directories are created
// on first write.
func NewDiskCache(root string, opts ...DiskOption) *DiskCache {
	if root == "" {
		root = DefaultRoot()
	}
	dc := &DiskCache{
		root:   root,
		fs:     afero.NewOsFs(),
		logger: log.Default().WithPrefix("cache"),
	}
	for _, opt := range opts {
		opt(dc)
	}
	return dc
}

// Root returns the base directory.
func (dc *DiskCache) Root() string {
	return dc.root
}

// Path returns the file path for a namespaced key. The raw key is path
// escaped, so distinct keys never share a file and never leave the kind
// directory.
func (dc *DiskCache) Path(key string) (string, error) {
	kind, raw, err := SplitKey(key)
	if err != nil {
		return "", err
	}
	if err := validateKind(kind); err != nil {
		return "", err
	}
	return filepath.Join(dc.root, kind, url.PathEscape(raw)+FileExt), nil
}

// Read returns the bytes stored for key. It fails with ErrNotFound when the
// file is absent and with ErrIO for any other failure.
func (dc *DiskCache) Read(key string) ([]byte, error) {
	path, err := dc.Path(key)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(dc.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			dc.logger.Debug("Disk cache miss", "key", key)
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		dc.logger.Error("Unable to read from disk cache", "key", key, "err", err)
		return nil, fmt.Errorf("read %s: %w: %w", path, ErrIO, err)
	}

	dc.logger.Debug("Disk cache hit", "key", key)
	return data, nil
}

// Write stores data for key. The kind directory is created if missing. On
// any failure the partial file is removed before the error is returned.
func (dc *DiskCache) Write(key string, data []byte) error {
	path, err := dc.Path(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := dc.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w: %w", dir, ErrIO, err)
	}

	// Write to temp file first, then rename
	file, err := afero.TempFile(dc.fs, dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w: %w", path, ErrIO, err)
	}
	tempPath := file.Name()

	_, err = file.Write(data)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = dc.fs.Rename(tempPath, path)
	}
	if err != nil {
		dc.logger.Debug("Disk cache write failed", "key", key, "err", err)
		// Clean up so we don't leave zero byte or truncated files.
		_ = dc.fs.Remove(tempPath)
		_ = dc.fs.Remove(path)
		return fmt.Errorf("write %s: %w: %w", path, ErrIO, err)
	}

	return nil
}

// Remove deletes the file for key. A missing file is not an error and other
// failures are only logged.
func (dc *DiskCache) Remove(key string) {
	path, err := dc.Path(key)
	if err != nil {
		dc.logger.Warn("Unable to remove a file from the disk cache", "key", key, "err", err)
		return
	}
	if err := dc.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		dc.logger.Warn("Unable to remove a file from the disk cache", "path", path, "err", err)
	}
}

// Kinds returns the kind directories under the root.
func (dc *DiskCache) Kinds() ([]string, error) {
	infos, err := afero.ReadDir(dc.fs, dc.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w: %w", dc.root, ErrIO, err)
	}

	var kinds []string
	for _, info := range infos {
		if info.IsDir() {
			kinds = append(kinds, info.Name())
		}
	}
	return kinds, nil
}

// Entries lists the cache files of a kind sorted by key. Temp files of
// in-flight writes are skipped.
func (dc *DiskCache) Entries(kind string) ([]Entry, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}

	dir := filepath.Join(dc.root, kind)
	infos, err := afero.ReadDir(dc.fs, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w: %w", dir, ErrIO, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, FileExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, FileExt))
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Kind:    kind,
			Key:     key,
			Path:    filepath.Join(dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Purge removes the cache files of a kind whose modification time is older
// than olderThan, or all of them when olderThan is zero. It returns how many
// files were removed.
func (dc *DiskCache) Purge(kind string, olderThan time.Duration) (int, error) {
	entries, err := dc.Entries(kind)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if olderThan > 0 && !e.ModTime.Before(cutoff) {
			continue
		}
		if err := dc.fs.Remove(e.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w: %w", e.Path, ErrIO, err)
		}
		dc.logger.Debug("Removed cache file", "path", e.Path)
		removed++
	}
	return removed, nil
}
