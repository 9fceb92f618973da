// Package storage persists a generated frame sequence for the display host.
//
// Stores replace the whole set at once: a reader sees either the previous
// complete sequence or the new one, never a mix. After every successful
// SaveAll or DeleteAll the store emits a refresh signal.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/keyringframes/internal/config"
)

var (
	// ErrNoFrames is returned when nothing has been stored yet.
	ErrNoFrames = errors.New("no frames stored")
	// ErrNotFound is returned for a frame index outside the stored sequence.
	ErrNotFound = errors.New("frame not found")
)

// Manifest describes the stored sequence. Generation changes on every SaveAll,
// so a display can tell a fresh sequence from the one it already shows.
type Manifest struct {
	Generation string    `json:"generation"`
	Count      int       `json:"count"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewManifest(count int) Manifest {
	return Manifest{
		Generation: uuid.NewString(),
		Count:      count,
		CreatedAt:  time.Now().UTC(),
	}
}

type Store interface {
	SaveAll(ctx context.Context, frames [][]byte) (Manifest, error)
	HasFrames(ctx context.Context) (bool, error)
	Load(ctx context.Context, index int) ([]byte, error)
	Manifest(ctx context.Context) (Manifest, error)
	DeleteAll(ctx context.Context) error
	Close() error
}

// Notifier receives the refresh signal. A zero Manifest means the frames were deleted.
type Notifier interface {
	Refresh(ctx context.Context, m Manifest)
}

type NotifierFunc func(ctx context.Context, m Manifest)

func (f NotifierFunc) Refresh(ctx context.Context, m Manifest) {
	f(ctx, m)
}

// FrameName is the file (or key suffix) of frame index.
func FrameName(index int) string {
	return fmt.Sprintf("frame_%02d.png", index)
}

// Open builds the store selected by cfg.StoreBackend. The redis backend
// signals refreshes on its channel, so n is only used by the dir backend.
func Open(ctx context.Context, cfg *config.Config, n Notifier) (Store, error) {
	switch cfg.StoreBackend {
	case "", "dir":
		return NewDirStore(cfg.StoreDir, n)
	case "redis":
		return NewRedisStore(ctx, RedisConfig{
			Addr:    cfg.RedisAddr,
			Prefix:  cfg.RedisPrefix,
			Channel: cfg.RedisChannel,
		})
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func validFrames(frames [][]byte) error {
	if len(frames) == 0 {
		return errors.New("empty frame sequence")
	}
	for i, f := range frames {
		if len(f) == 0 {
			return fmt.Errorf("frame %d is empty", i)
		}
	}
	return nil
}
