package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abd-ghreeb/venture-pulse/internal/session"
)

// KV stores session payloads as plain Redis strings with SET ... EX.
type KV struct {
	client *goredis.Client
}

func New(url string) (*KV, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return NewFromClient(goredis.NewClient(opts)), nil
}

func NewFromClient(client *goredis.Client) *KV {
	return &KV{client: client}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := k.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return k.client.Set(ctx, key, value, ttl).Err()
}

func (k *KV) Delete(ctx context.Context, key string) error {
	return k.client.Del(ctx, key).Err()
}

func (k *KV) Ping(ctx context.Context) error {
	return k.client.Ping(ctx).Err()
}

func (k *KV) Close() error {
	return k.client.Close()
}
