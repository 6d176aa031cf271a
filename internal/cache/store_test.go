package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	store := NewStore(client)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "ideon_ideas_storage")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "ideon_ideas_storage", `[{"id":"idea1"}]`))
	val, ok, err := store.Get(ctx, "ideon_ideas_storage")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"idea1"}]`, val)
	assert.Equal(t, 0, int(mr.TTL("ideon_ideas_storage")))

	require.NoError(t, store.Delete(ctx, "ideon_ideas_storage"))
	assert.False(t, mr.Exists("ideon_ideas_storage"))
	assert.Equal(t, "redis", store.Name())
}

func TestStoreSurfacesErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	mr.Close()

	_, _, err = NewStore(client).Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client := Connect(context.Background(), mr.Addr())
	require.NotNil(t, client)
	defer client.Close()

	assert.Nil(t, Connect(context.Background(), "unknown://localhost:6379"))
}
