package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/stats"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, "stats", time.Minute), srv
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	cache, srv := newTestCache(t)

	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	var got stats.Teacher
	found, err := cache.Get(ctx, gen, "teacher:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := stats.Teacher{TotalCourses: 2, ActiveClassrooms: 3, TotalStudents: 7}
	require.NoError(t, cache.Set(ctx, gen, "teacher:1", want))
	assert.True(t, srv.Exists("stats:0:teacher:1"))
	assert.Equal(t, time.Minute, srv.TTL("stats:0:teacher:1"))

	found, err = cache.Get(ctx, gen, "teacher:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	// entries of older generations are not read anymore
	require.NoError(t, cache.Invalidate(ctx))
	gen, err = cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	found, err = cache.Get(ctx, gen, "teacher:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, gen, "teacher:1", stats.Teacher{TotalCourses: 5}))
	assert.True(t, srv.Exists("stats:1:teacher:1"))
}

func TestRedisCache_Unavailable(t *testing.T) {
	ctx := context.Background()
	cache, srv := newTestCache(t)
	srv.Close()

	var got stats.Global
	_, err := cache.Generation(ctx)
	assert.Error(t, err)
	_, err = cache.Get(ctx, 0, "admin:1", &got)
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, 0, "admin:1", stats.Global{}))
	assert.Error(t, cache.Invalidate(ctx))
}
