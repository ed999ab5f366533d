// Package cache keeps the latest reading in Redis so dashboard polls do not hit the database.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

// KVStore abstracts the key-value backend. Entries carry a version string;
// versions compare lexically, so callers must use fixed-width encodings.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)

	// SetIfNewer stores value unless the entry holds a greater version, or an
	// equal one when orEqual is false. It reports whether value was stored.
	SetIfNewer(ctx context.Context, key, version, value string, orEqual bool, ttl time.Duration) (bool, error)
}

const (
	fieldVersion = "version"
	fieldValue   = "value"
)

// setIfNewer runs the version check and the write as one Redis command.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur then
	if cur > ARGV[1] then return 0 end
	if cur == ARGV[1] and ARGV[3] ~= '1' then return 0 end
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'value', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

// RedisKVStore is a KVStore backed by go-redis. Each key is a hash holding
// the version and the value.
type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.HGet(ctx, key, fieldValue).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) SetIfNewer(ctx context.Context, key, version, value string, orEqual bool, ttl time.Duration) (bool, error) {
	eq := "0"
	if orEqual {
		eq = "1"
	}
	n, err := setIfNewer.Run(ctx, r.client, []string{key}, version, value, eq, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
