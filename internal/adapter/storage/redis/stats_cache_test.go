package redis_test

import (
	"context"
	"testing"
	"time"

	"consenthub/internal/adapter/storage/redis"
	"consenthub/internal/core/ports"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := redis.NewStatsCache(client)
	ctx := context.Background()

	t.Run("miss returns nil", func(t *testing.T) {
		stats, err := cache.Get(ctx, "global")
		require.NoError(t, err)
		assert.Nil(t, stats)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		want := &ports.AuditStatistics{
			Total:       42,
			ByEventType: map[string]int64{"consent_granted": 30},
			ByAction:    map[string]int64{"grant": 30},
			Daily:       []ports.DailyCount{{Date: "2026-08-29", Count: 42}},
		}
		require.NoError(t, cache.Set(ctx, "global", want, time.Minute))

		got, err := cache.Get(ctx, "global")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(42), got.Total)
		assert.Equal(t, int64(30), got.ByEventType["consent_granted"])
		require.Len(t, got.Daily, 1)
		assert.Equal(t, "2026-08-29", got.Daily[0].Date)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "short", &ports.AuditStatistics{Total: 1}, time.Second))
		mr.FastForward(2 * time.Second)

		stats, err := cache.Get(ctx, "short")
		require.NoError(t, err)
		assert.Nil(t, stats)
	})
}
