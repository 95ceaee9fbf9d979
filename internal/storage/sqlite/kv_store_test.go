package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

func openTestStore(t *testing.T) (*KVStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cart.db")
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestKVStore_GetMissing(t *testing.T) {
	store, _ := openTestStore(t)

	value, ok, err := store.Get(context.Background(), "@cartstate:products")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, value)
}

func TestKVStore_SetOverwrites(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "first"))
	require.NoError(t, store.Set(ctx, "k", "second"))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", value)
}

func TestKVStore_SurvivesReopen(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", `[{"id":"p1"}]`))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"id":"p1"}]`, value)
}

func TestKVStore_KeyRequired(t *testing.T) {
	store, _ := openTestStore(t)

	_, _, err := store.Get(context.Background(), " ")
	require.ErrorIs(t, err, domain.ErrKVKeyRequired)
	require.ErrorIs(t, store.Set(context.Background(), "", "v"), domain.ErrKVKeyRequired)
}

func TestKVStore_PingAndNilGuards(t *testing.T) {
	store, _ := openTestStore(t)
	require.NoError(t, store.Ping(context.Background()))

	var empty *KVStore
	require.Error(t, empty.Ping(context.Background()))
	require.NoError(t, empty.Close())

	_, err := Open(context.Background(), "  ")
	require.Error(t, err)
}
