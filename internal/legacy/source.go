// Package legacy migrates the flat key/value representation used by earlier
// versions into the structured store.
package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys of the legacy flat representation.
const (
	KeyBookmarks     = "bookmarks"
	KeyDirectories   = "directories"
	KeyLayoutDensity = "layoutDensity"
)

// Source reads single-value blobs from a legacy key/value store.
type Source interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
}

// FileSource reads a JSON object mapping keys to string blobs. Values that
// are not strings are returned as their raw JSON text.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the source file path.
func (s *FileSource) Path() string {
	return s.path
}

// Get returns the value stored under key. A missing file holds no keys.
func (s *FileSource) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return "", false, fmt.Errorf("parse legacy file: %w", err)
	}

	raw, ok := values[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false, nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, true, nil
	}
	return string(raw), true, nil
}

// RedisSource reads legacy keys stored as Redis strings under a prefix.
type RedisSource struct {
	client *redis.Client
	prefix string
}

// NewRedisSource connects to redisURL and verifies the connection.
func NewRedisSource(redisURL, prefix string) (*RedisSource, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisSource{client: client, prefix: prefix}, nil
}

// NewRedisSourceWithClient wraps an existing client.
func NewRedisSourceWithClient(client *redis.Client, prefix string) *RedisSource {
	return &RedisSource{client: client, prefix: prefix}
}

// Get returns the string stored under prefix+key.
func (s *RedisSource) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read legacy key %q: %w", key, err)
	}
	return value, true, nil
}

// Close closes the Redis connection.
func (s *RedisSource) Close() error {
	return s.client.Close()
}
