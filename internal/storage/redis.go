package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces collection keys in a shared Redis.
const RedisKeyPrefix = "laundry:collection:"

// RedisBackend stores each collection as one string key without expiry.
type RedisBackend struct {
	client redis.Cmdable
}

func NewRedisBackend(client redis.Cmdable) *RedisBackend {
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := r.client.Get(ctx, RedisKeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, loadError(name, err)
	}
	return data, nil
}

func (r *RedisBackend) Save(ctx context.Context, name string, data []byte) error {
	if err := r.client.Set(ctx, RedisKeyPrefix+name, data, 0).Err(); err != nil {
		return saveError(name, err)
	}
	return nil
}
