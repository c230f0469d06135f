package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"loan-backend/internal/cache"
)

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func TestCheckBasic(t *testing.T) {
	ok := NewHealthChecker(pinger{}).CheckBasic(context.Background())
	assert.Equal(t, "healthy", ok.Status)
	assert.Equal(t, "healthy", ok.Database.Status)

	down := NewHealthChecker(pinger{err: errors.New("refused")}).CheckBasic(context.Background())
	assert.Equal(t, "unhealthy", down.Status)
	assert.Equal(t, "unhealthy", down.Database.Status)
}

func TestCheckDetailed_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	status := NewHealthChecker(pinger{}).CheckDetailed(context.Background())
	require.NotNil(t, status.Redis)
	assert.Equal(t, "healthy", status.Redis.Status)
	assert.Equal(t, "healthy", status.Status)
	assert.NotNil(t, status.Host)

	mr.Close()
	status = NewHealthChecker(pinger{}).CheckDetailed(context.Background())
	assert.Equal(t, "unhealthy", status.Redis.Status)
	assert.Equal(t, "degraded", status.Status)
}

func TestCheckDetailed_NoRedisConfigured(t *testing.T) {
	cache.SetClient(nil)
	status := NewHealthChecker(pinger{}).CheckDetailed(context.Background())
	assert.Nil(t, status.Redis)
}
