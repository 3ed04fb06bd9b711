package cache

import (
	"context"
	"log"
	"time"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tutor:"

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// NewRedisClient builds a client from REDIS_ADDR, REDIS_PASSWORD and REDIS_DB.
func NewRedisClient() *redis.Client {
	addr := config.Config("REDIS_ADDR")
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.Config("REDIS_PASSWORD"),
		DB:       config.Int("REDIS_DB"),
	})
	log.Printf("✅ Redis client created (addr: %s)", addr)
	return rdb
}

// FromConfig returns a redis-backed cache when REDIS_ADDR is set and reachable,
// otherwise an in-process one.
func FromConfig(ctx context.Context) Cache {
	if config.Config("REDIS_ADDR") == "" {
		log.Println("⚠️ REDIS_ADDR not set, using in-process settings cache")
		return NewMemory()
	}
	rdb := NewRedisClient()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis unreachable (%v), using in-process settings cache", err)
		_ = rdb.Close()
		return NewMemory()
	}
	return NewRedis(rdb)
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, errors.Wrap(err, "redis get")
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.Wrap(r.client.Set(ctx, keyPrefix+key, value, ttl).Err(), "redis set")
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	return errors.Wrap(r.client.Del(ctx, prefixed...).Err(), "redis del")
}
