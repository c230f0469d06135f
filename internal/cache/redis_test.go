package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { Close() })
	return mr
}

func TestNilClientIsNoop(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	SetCached(ctx, AdminStatsKey, []byte("x"), time.Minute)
	_, ok := GetCached(ctx, AdminStatsKey)
	assert.False(t, ok)
	assert.False(t, IsHealthy(ctx))
	InvalidateStatsCaches(ctx)
	assert.NoError(t, Close())
}

func TestSetAndGet(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	SetCached(ctx, AdminStatsKey, []byte(`{"agents":2}`), DefaultStatsTTL)
	data, ok := GetCached(ctx, AdminStatsKey)
	require.True(t, ok)
	assert.Equal(t, `{"agents":2}`, string(data))

	mr.FastForward(DefaultStatsTTL + time.Second)
	_, ok = GetCached(ctx, AdminStatsKey)
	assert.False(t, ok)
}

func TestInvalidateStatsCaches(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	SetCached(ctx, AdminStatsKey, []byte("a"), time.Minute)
	SetCached(ctx, AgentStatsKey(4), []byte("b"), time.Minute)
	SetCached(ctx, "other:key", []byte("c"), time.Minute)

	InvalidateStatsCaches(ctx)

	assert.False(t, mr.Exists(AdminStatsKey))
	assert.False(t, mr.Exists("stats:agent:4"))
	assert.True(t, mr.Exists("other:key"))
}

func TestInitFailureLeavesNilClient(t *testing.T) {
	err := Init("127.0.0.1:1", "", 0)
	assert.Error(t, err)
	assert.Nil(t, GetClient())
}

func TestIsHealthy(t *testing.T) {
	useMiniredis(t)
	assert.True(t, IsHealthy(context.Background()))
}
