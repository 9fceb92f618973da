package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

const testChannel = "keyring:refresh"

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), RedisConfig{Addr: mr.Addr(), Channel: testChannel})
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStoreEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	ok, err := s.HasFrames(ctx)
	if err != nil || ok {
		t.Errorf("HasFrames = %v, %v; want false", ok, err)
	}
	if _, err := s.Manifest(ctx); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
	if _, err := s.Load(ctx, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteAll(ctx); err != nil {
		t.Errorf("DeleteAll on empty store: %v", err)
	}
}

func TestRedisStoreSaveReplace(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	first, err := s.SaveAll(ctx, frames(30, 'a'))
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if ok, _ := s.HasFrames(ctx); !ok {
		t.Error("expected frames after SaveAll")
	}

	second, err := s.SaveAll(ctx, frames(3, 'b'))
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if second.Generation == first.Generation {
		t.Error("generation should change on every save")
	}

	got, err := s.Load(ctx, 2)
	if err != nil || string(got) != "b\x02" {
		t.Errorf("Load(2) = %q, %v", got, err)
	}
	if _, err := s.Load(ctx, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("frame 10 of the previous sequence should be gone, got %v", err)
	}
	if keys := mr.Keys(); len(keys) != 4 {
		t.Errorf("expected 3 frames and a manifest, got %v", keys)
	}

	m, err := s.Manifest(ctx)
	if err != nil || m.Generation != second.Generation || m.Count != 3 {
		t.Errorf("Manifest = %+v, %v", m, err)
	}
}

func TestRedisStoreIncomplete(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	if _, err := s.SaveAll(ctx, frames(4, 'c')); err != nil {
		t.Fatal(err)
	}
	mr.Del(s.frameKey(2))
	if ok, _ := s.HasFrames(ctx); ok {
		t.Error("a set with a missing frame is not complete")
	}
}

func TestRedisStoreDeleteAll(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	if _, err := s.SaveAll(ctx, frames(5, 'x')); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if ok, _ := s.HasFrames(ctx); ok {
		t.Error("frames should be gone")
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("keys left behind: %v", keys)
	}
}

func TestRedisStorePublishesRefresh(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	sub := s.client.Subscribe(ctx, testChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	ch := sub.Channel()

	receive := func() Manifest {
		t.Helper()
		select {
		case msg := <-ch:
			var m Manifest
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				t.Fatalf("bad refresh payload %q: %v", msg.Payload, err)
			}
			return m
		case <-time.After(2 * time.Second):
			t.Fatal("no refresh published")
		}
		return Manifest{}
	}

	saved, err := s.SaveAll(ctx, frames(3, 'p'))
	if err != nil {
		t.Fatal(err)
	}
	if got := receive(); got.Generation != saved.Generation || got.Count != 3 {
		t.Errorf("refresh = %+v, want %+v", got, saved)
	}

	if err := s.DeleteAll(ctx); err != nil {
		t.Fatal(err)
	}
	if got := receive(); got.Count != 0 || got.Generation != "" {
		t.Errorf("delete refresh = %+v, want zero manifest", got)
	}
}

func TestRedisStoreConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	for round := 0; round < 20; round++ {
		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for _, n := range []int{30, 3} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.SaveAll(ctx, frames(n, byte(n))); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("round %d: SaveAll failed: %v", round, err)
		}

		m, err := s.Manifest(ctx)
		if err != nil {
			t.Fatal(err)
		}
		// whichever save won, nothing outside its sequence may survive
		if keys := mr.Keys(); len(keys) != m.Count+1 {
			t.Fatalf("round %d: manifest says %d frames but %d keys exist", round, m.Count, len(keys)-1)
		}
		if _, err := s.Load(ctx, m.Count); !errors.Is(err, ErrNotFound) {
			t.Fatalf("round %d: frame %d should not exist: %v", round, m.Count, err)
		}
	}
}
