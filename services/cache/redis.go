// Package cachesvc caches computed views in redis.
package cachesvc

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/stats"
)

// RedisCache stores JSON values under `<prefix>:<generation>:<key>`.
// Invalidate bumps the generation: older entries are never read again and expire on their own.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ stats.Cache = (*RedisCache)(nil)

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) genKey() string { return c.prefix + ":gen" }

// Generation returns the current cache generation, 0 before the first invalidation.
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, errors.Wrap(err, "reading cache generation")
}

func (c *RedisCache) key(gen int64, key string) string {
	return c.prefix + ":" + strconv.FormatInt(gen, 10) + ":" + key
}

func (c *RedisCache) Get(ctx context.Context, gen int64, key string, dest interface{}) (bool, error) {
	k := c.key(gen, key)
	data, err := c.client.Get(ctx, k).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "reading %s", k)
	}
	if err = json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrapf(err, "decoding %s", k)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, gen int64, key string, val interface{}) error {
	k := c.key(gen, key)
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", k)
	}
	return errors.Wrapf(c.client.Set(ctx, k, data, c.ttl).Err(), "writing %s", k)
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return errors.Wrap(c.client.Incr(ctx, c.genKey()).Err(), "bumping cache generation")
}
