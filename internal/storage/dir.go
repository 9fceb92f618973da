package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const manifestFile = "manifest.json"

// DirStore keeps frames as frame_NN.png files plus a manifest.json in one
// directory. A new sequence is written to a sibling staging directory that
// replaces the live one with renames.
type DirStore struct {
	mu     sync.RWMutex
	root   string
	notify Notifier
}

func NewDirStore(root string, n Notifier) (*DirStore, error) {
	if root == "" {
		return nil, errors.New("storage: empty directory")
	}
	root = filepath.Clean(root)
	if err := os.MkdirAll(filepath.Dir(root), 0755); err != nil {
		return nil, fmt.Errorf("create store parent: %w", err)
	}
	return &DirStore{root: root, notify: n}, nil
}

// Path returns the live directory.
func (s *DirStore) Path() string {
	return s.root
}

func (s *DirStore) SaveAll(ctx context.Context, frames [][]byte) (Manifest, error) {
	if err := validFrames(frames); err != nil {
		return Manifest{}, err
	}

	staging, err := os.MkdirTemp(filepath.Dir(s.root), "."+filepath.Base(s.root)+"-staging-")
	if err != nil {
		return Manifest{}, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return Manifest{}, err
		}
		if err := os.WriteFile(filepath.Join(staging, FrameName(i)), f, 0644); err != nil {
			return Manifest{}, fmt.Errorf("write frame %d: %w", i, err)
		}
	}

	m := NewManifest(len(frames))
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, manifestFile), data, 0644); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	// MkdirTemp creates 0700 directories
	if err := os.Chmod(staging, 0755); err != nil {
		return Manifest{}, err
	}

	s.mu.Lock()
	err = s.swap(staging)
	s.mu.Unlock()
	if err != nil {
		return Manifest{}, err
	}

	if s.notify != nil {
		s.notify.Refresh(ctx, m)
	}
	return m, nil
}

// swap moves staging into place and drops the previous set.
func (s *DirStore) swap(staging string) error {
	old := s.root + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("remove stale set: %w", err)
	}

	hadOld := true
	if err := os.Rename(s.root, old); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("retire current set: %w", err)
		}
		hadOld = false
	}

	if err := os.Rename(staging, s.root); err != nil {
		if hadOld {
			// put the previous set back
			_ = os.Rename(old, s.root)
		}
		return fmt.Errorf("publish new set: %w", err)
	}

	if hadOld {
		_ = os.RemoveAll(old)
	}
	return nil
}

func (s *DirStore) Manifest(ctx context.Context) (Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest()
}

func (s *DirStore) manifest() (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.root, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, ErrNoFrames
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// HasFrames reports whether a complete sequence is stored.
func (s *DirStore) HasFrames(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := s.manifest()
	if errors.Is(err, ErrNoFrames) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if m.Count == 0 {
		return false, nil
	}
	for i := 0; i < m.Count; i++ {
		if _, err := os.Stat(filepath.Join(s.root, FrameName(i))); err != nil {
			return false, nil
		}
	}
	return true, nil
}

func (s *DirStore) Load(ctx context.Context, index int) ([]byte, error) {
	if index < 0 {
		return nil, fmt.Errorf("frame %d: %w", index, ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.root, FrameName(index)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("frame %d: %w", index, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read frame %d: %w", index, err)
	}
	return data, nil
}

func (s *DirStore) DeleteAll(ctx context.Context) error {
	trash := s.root + ".trash"
	if err := os.RemoveAll(trash); err != nil {
		return fmt.Errorf("delete frames: %w", err)
	}

	s.mu.Lock()
	err := os.Rename(s.root, trash)
	s.mu.Unlock()

	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete frames: %w", err)
	}
	if err := os.RemoveAll(trash); err != nil {
		return fmt.Errorf("delete frames: %w", err)
	}

	if s.notify != nil {
		s.notify.Refresh(ctx, Manifest{})
	}
	return nil
}

func (s *DirStore) Close() error { return nil }

var _ Store = (*DirStore)(nil)
