package imagelink

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"
)

// readFile reads a cache entry.
var readFile = os.ReadFile

// DiskCache keeps the rendered images on disk, mirroring the directories of
// their sources. An entry is fresh while it is not older than its source.
type DiskCache struct {
	Root   string
	Images string
}

// NewDiskCache creates a cache below root for the sources below images.
func NewDiskCache(root, images string) *DiskCache {
	return &DiskCache{
		Root:   root,
		Images: images,
	}
}

// Key is the hex SHA-256 of the canonical filename. The watermark is not
// part of it: entries rendered before a watermark change are served until
// their source changes or they are evicted.
func (c *DiskCache) Key(r *Request) string {
	sum := sha256.Sum256([]byte(path.Base(r.Filename())))
	return hex.EncodeToString(sum[:])
}

// Path is where the entry of r lives.
func (c *DiskCache) Path(r *Request) string {
	return filepath.Join(c.Root, localDirectory(r.Directory()), c.Key(r))
}

// IsFresh tells if the entry exists and is not older than the source. A
// stale entry is removed.
func (c *DiskCache) IsFresh(r *Request) bool {
	filename := c.Path(r)

	cached, err := os.Stat(filename)
	if err != nil {
		return false
	}

	source, err := os.Stat(r.SourcePath(c.Images))
	if err == nil && !cached.ModTime().Before(source.ModTime()) {
		return true
	}

	debug("Removing stale %#v", filename)
	if err := os.Remove(filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
		debug("Cannot remove %#v: %s", filename, err)
	}
	return false
}

// Get reads a fresh entry. A miss is not an error.
func (c *DiskCache) Get(r *Request) ([]byte, bool, error) {
	if !c.IsFresh(r) {
		return nil, false, nil
	}

	data, err := readFile(c.Path(r))
	if errors.Is(err, fs.ErrNotExist) {
		// removed in between
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	debug("Cache hit %#v", r.Filename())
	return data, true, nil
}

// ModTime is when the entry was written, zero if there is none.
func (c *DiskCache) ModTime(r *Request) time.Time {
	stat, err := os.Stat(c.Path(r))
	if err != nil {
		return time.Time{}
	}
	return stat.ModTime()
}

// Put stores data for r. The entry is written aside then renamed so readers
// never see a partial file.
func (c *DiskCache) Put(r *Request, data []byte) error {
	filename := c.Path(r)
	directory := filepath.Dir(filename)

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("cannot create cache directory: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return err
	}

	tmp := filepath.Join(directory, "."+id.String()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cannot write cache entry: %w", err)
	}

	// the umask may have restricted it
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cannot write cache entry: %w", err)
	}

	debug("Cached %#v as %#v", r.Filename(), filename)
	return nil
}

// Evict removes the entry of r, a missing entry is fine.
func (c *DiskCache) Evict(r *Request) error {
	err := os.Remove(c.Path(r))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
