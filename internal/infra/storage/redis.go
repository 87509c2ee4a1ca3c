package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore は "<prefix>:<name>" のキーに保存する
type RedisStore struct {
	client *redis.Client
	prefix string
}

func OpenRedis(ctx context.Context, url string, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(client, prefix), nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Slot(name string) Slot {
	return &redisSlot{client: s.client, key: s.prefix + ":" + name}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisSlot struct {
	client *redis.Client
	key    string
}

func (r *redisSlot) Load(ctx context.Context) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *redisSlot) Save(ctx context.Context, data []byte) error {
	return r.client.Set(ctx, r.key, data, 0).Err()
}

func (r *redisSlot) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
