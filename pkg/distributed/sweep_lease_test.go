package distributed

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLeaseClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // 테스트용 DB
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available:", err)
	}

	client.FlushDB(ctx)
	return client
}

func TestSweepLease_SingleHolder(t *testing.T) {
	client := setupLeaseClient(t)
	defer client.Close()
	ctx := context.Background()

	a := NewSweepLease(client, "test:sweep", 5*time.Second)
	b := NewSweepLease(client, "test:sweep", 5*time.Second)

	ok, err := a.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// 두 번째 인스턴스는 리스를 얻지 못한다
	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx))

	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSweepLease_ReleaseOnlyOwn(t *testing.T) {
	client := setupLeaseClient(t)
	defer client.Close()
	ctx := context.Background()

	a := NewSweepLease(client, "test:sweep", 5*time.Second)
	b := NewSweepLease(client, "test:sweep", 5*time.Second)

	ok, err := a.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// 남의 리스는 해제할 수 없다
	assert.ErrorIs(t, b.Release(ctx), ErrLeaseNotHeld)
	assert.NoError(t, a.Release(ctx))
}
