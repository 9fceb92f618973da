package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 10

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, e.g. "keyring"
	Channel  string // refresh channel; empty disables publishing
}

// RedisStore keeps frames under <prefix>:frame_NN.png and the manifest under
// <prefix>:manifest. Writes run in one MULTI/EXEC transaction that also
// publishes the manifest on the refresh channel; the manifest key is watched
// so concurrent writers cannot leave frames of an older sequence behind.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	channel string
}

func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return newRedisStore(client, cfg), nil
}

func newRedisStore(client *redis.Client, cfg RedisConfig) *RedisStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "keyring"
	}
	return &RedisStore{client: client, prefix: prefix, channel: cfg.Channel}
}

func (s *RedisStore) frameKey(index int) string {
	return s.prefix + ":" + FrameName(index)
}

func (s *RedisStore) manifestKey() string {
	return s.prefix + ":manifest"
}

func (s *RedisStore) SaveAll(ctx context.Context, frames [][]byte) (Manifest, error) {
	if err := validFrames(frames); err != nil {
		return Manifest{}, err
	}

	m := NewManifest(len(frames))
	data, err := json.Marshal(m)
	if err != nil {
		return Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}

	err = s.watch(ctx, func(tx *redis.Tx) error {
		// frames past the new count belong to the previous sequence
		stale, err := s.storedCount(ctx, tx)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, f := range frames {
				pipe.Set(ctx, s.frameKey(i), f, 0)
			}
			for i := len(frames); i < stale; i++ {
				pipe.Del(ctx, s.frameKey(i))
			}
			pipe.Set(ctx, s.manifestKey(), data, 0)
			if s.channel != "" {
				pipe.Publish(ctx, s.channel, data)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return Manifest{}, fmt.Errorf("store frames: %w", err)
	}
	return m, nil
}

// watch runs fn with the manifest key watched, retrying when a concurrent
// writer changed the manifest before EXEC.
func (s *RedisStore) watch(ctx context.Context, fn func(*redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, s.manifestKey())
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("manifest changed %d times in a row: %w", maxTxRetries, redis.TxFailedErr)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) storedCount(ctx context.Context, c getter) (int, error) {
	m, err := s.readManifest(ctx, c)
	if errors.Is(err, ErrNoFrames) {
		return 0, nil
	}
	return m.Count, err
}

func (s *RedisStore) Manifest(ctx context.Context) (Manifest, error) {
	return s.readManifest(ctx, s.client)
}

func (s *RedisStore) readManifest(ctx context.Context, c getter) (Manifest, error) {
	data, err := c.Get(ctx, s.manifestKey()).Bytes()
	if errors.Is(err, redis.Nil) {
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

func (s *RedisStore) HasFrames(ctx context.Context) (bool, error) {
	m, err := s.Manifest(ctx)
	if errors.Is(err, ErrNoFrames) {
		return false, nil
	}
	if err != nil || m.Count == 0 {
		return false, err
	}

	keys := make([]string, m.Count)
	for i := range keys {
		keys[i] = s.frameKey(i)
	}
	n, err := s.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, err
	}
	return n == int64(m.Count), nil
}

func (s *RedisStore) Load(ctx context.Context, index int) ([]byte, error) {
	if index < 0 {
		return nil, fmt.Errorf("frame %d: %w", index, ErrNotFound)
	}
	data, err := s.client.Get(ctx, s.frameKey(index)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("frame %d: %w", index, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read frame %d: %w", index, err)
	}
	return data, nil
}

func (s *RedisStore) DeleteAll(ctx context.Context) error {
	err := s.watch(ctx, func(tx *redis.Tx) error {
		count, err := s.storedCount(ctx, tx)
		if err != nil {
			return err
		}

		keys := []string{s.manifestKey()}
		for i := 0; i < count; i++ {
			keys = append(keys, s.frameKey(i))
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, keys...)
			if s.channel != "" {
				empty, _ := json.Marshal(Manifest{})
				pipe.Publish(ctx, s.channel, empty)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete frames: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
