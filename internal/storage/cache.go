package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrInvalidName is returned for cache keys that cannot be turned into a
// plain file name inside the cache directory.
var ErrInvalidName = errors.New("invalid file name")

// Cache is the upload cache: a flat directory of files keyed by their
// sanitized base name. Saving a name twice replaces the earlier file.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// Path resolves a cache key to its file path.
func (c *Cache) Path(name string) (string, error) {
	clean, err := SanitizeFilename(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.dir, clean), nil
}

// Save copies r into the cache under name and returns the sanitized key and
// the number of bytes written.
func (c *Cache) Save(name string, r io.Reader) (string, int64, error) {
	clean, err := SanitizeFilename(name)
	if err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(c.dir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("failed to write %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to write %s: %w", clean, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(c.dir, clean)); err != nil {
		return "", 0, fmt.Errorf("failed to store %s: %w", clean, err)
	}
	return clean, n, nil
}

// Open returns a reader for a cached file
func (c *Cache) Open(name string) (io.ReadCloser, error) {
	p, err := c.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Exists reports whether name is a regular file in the cache
func (c *Cache) Exists(name string) bool {
	p, err := c.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// SanitizeFilename reduces name to a safe base file name. Directory parts are
// dropped and characters that are invalid on common filesystems become '_'.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`:*?"<>|`, r):
			return '_'
		}
		return r
	}, name)

	if strings.HasPrefix(name, ".") {
		// hidden names would collide with in-flight uploads
		name = "_" + name[1:]
	}
	if len(name) > 200 {
		ext := filepath.Ext(name)
		if len(ext) > 20 {
			ext = ""
		}
		cut := 200 - len(ext)
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + ext
	}
	return name, nil
}
