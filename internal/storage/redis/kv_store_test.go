package redis

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

func openRedisForIntegrationTest(t *testing.T) *goredis.Client {
	t.Helper()

	addr := strings.TrimSpace(os.Getenv("CARTSTATE_REDIS_TEST_ADDR"))
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := NewClient(ctx, Config{Addr: addr, PingAttempts: 1}, nil)
	if err != nil {
		t.Skipf("redis is not available for integration tests: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestKVStore_RedisSetGet(t *testing.T) {
	kv := NewKVStore(openRedisForIntegrationTest(t))
	ctx := context.Background()
	key := "@cartstate:test:" + uuid.NewString()

	_, ok, err := kv.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(ctx, key, "[]"))
	require.NoError(t, kv.Set(ctx, key, `[{"id":"p1"}]`))

	value, ok, err := kv.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"id":"p1"}]`, value)
	require.NoError(t, kv.Ping(ctx))
}

func TestKVStore_KeyRequired(t *testing.T) {
	kv := NewKVStore(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"}))

	_, _, err := kv.Get(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrKVKeyRequired)
	require.ErrorIs(t, kv.Set(context.Background(), " ", "v"), domain.ErrKVKeyRequired)
}

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewClient(ctx, Config{Addr: "127.0.0.1:1", PingAttempts: 1}, nil)
	require.Error(t, err)

	_, err = NewClient(ctx, Config{}, nil)
	require.Error(t, err)
}
