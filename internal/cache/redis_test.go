package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start container")

	t.Cleanup(func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	url, err := redisContainer.PortEndpoint(ctx, "6379/tcp", "redis")
	require.NoError(t, err)

	rc, err := NewRedisCache(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return rc
}

type report struct {
	Team  string  `json:"team"`
	Share float64 `json:"share"`
}

func TestRedisCacheJSON(t *testing.T) {
	rc := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, rc.HealthCheck(ctx))

	var got report
	assert.ErrorIs(t, rc.GetJSON(ctx, "tendencies:1:all", &got), ErrMiss)

	require.NoError(t, rc.SetJSON(ctx, "tendencies:1:all", report{Team: "Lakeview", Share: 0.25}, time.Minute))
	require.NoError(t, rc.GetJSON(ctx, "tendencies:1:all", &got))
	assert.Equal(t, report{Team: "Lakeview", Share: 0.25}, got)

	ttl, err := rc.Client().TTL(ctx, "tendencies:1:all").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisCacheDeletePrefix(t *testing.T) {
	rc := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{TendencyPrefix + "1:all", TendencyPrefix + "1:2024", TendencyPrefix + "2:all", "other:1"} {
		require.NoError(t, rc.SetJSON(ctx, key, report{Team: key}, time.Minute))
	}

	require.NoError(t, rc.DeletePrefix(ctx, TendencyPrefix))

	var got report
	assert.ErrorIs(t, rc.GetJSON(ctx, TendencyPrefix+"1:all", &got), ErrMiss)
	assert.ErrorIs(t, rc.GetJSON(ctx, TendencyPrefix+"2:all", &got), ErrMiss)
	require.NoError(t, rc.GetJSON(ctx, "other:1", &got))
	assert.Equal(t, "other:1", got.Team)

	// Nothing left to match
	assert.NoError(t, rc.DeletePrefix(ctx, TendencyPrefix))
}

func TestNopCache(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}

	require.NoError(t, c.SetJSON(ctx, "k", report{Team: "x"}, time.Minute))

	var got report
	assert.ErrorIs(t, c.GetJSON(ctx, "k", &got), ErrMiss)
	assert.NoError(t, c.DeletePrefix(ctx, "k"))
}
