// Package assets provides the overlay images drawn on top of the photo,
// addressed by zero-based frame index.
package assets

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"sync"

	"github.com/disintegration/imaging"
)

// ErrNotFound is returned (wrapped) when no overlay exists for an index.
var ErrNotFound = errors.New("overlay not found")

// Store loads the overlay for frame index. Implementations must be safe for
// concurrent use.
type Store interface {
	Overlay(index int) (image.Image, error)
}

// Func adapts a plain function to a Store.
type Func func(index int) (image.Image, error)

func (f Func) Overlay(index int) (image.Image, error) {
	return f(index)
}

// FSStore reads overlay PNGs named by a printf pattern such as "keyring_%02d.png".
type FSStore struct {
	fsys    fs.FS
	pattern string
}

func NewFSStore(fsys fs.FS, pattern string) *FSStore {
	return &FSStore{fsys: fsys, pattern: pattern}
}

// NewDirStore reads overlays from a directory on disk.
func NewDirStore(dir, pattern string) *FSStore {
	return NewFSStore(os.DirFS(dir), pattern)
}

// Name returns the file name of overlay index.
func (s *FSStore) Name(index int) string {
	return fmt.Sprintf(s.pattern, index)
}

func (s *FSStore) Overlay(index int) (image.Image, error) {
	if index < 0 {
		return nil, fmt.Errorf("overlay %d: %w", index, ErrNotFound)
	}
	name := s.Name(index)

	f, err := s.fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return img, nil
}

// Cache keeps decoded overlays in memory. Overlays are immutable, so a server
// generating many sequences decodes each asset once.
type Cache struct {
	store Store
	mu    sync.RWMutex
	items map[int]image.Image
}

func NewCache(store Store) *Cache {
	return &Cache{store: store, items: make(map[int]image.Image)}
}

func (c *Cache) Overlay(index int) (image.Image, error) {
	c.mu.RLock()
	img, ok := c.items[index]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	img, err := c.store.Overlay(index)
	if err != nil {
		// failures are not cached so a fixed asset dir recovers
		return nil, err
	}

	c.mu.Lock()
	c.items[index] = img
	c.mu.Unlock()
	return img, nil
}

// Check verifies that overlays 0..n-1 all load.
func Check(s Store, n int) error {
	for i := 0; i < n; i++ {
		if _, err := s.Overlay(i); err != nil {
			return err
		}
	}
	return nil
}
