package labelcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreRoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := NewMemStore(8, time.Minute)

	v, err := store.Get(ctx, "user", "7")
	require.NoError(err)
	assert.Empty(v)

	require.NoError(store.Set(ctx, "user", "7", "alice"))
	v, err = store.Get(ctx, "user", "7")
	require.NoError(err)
	assert.Equal("alice", v)

	// same id under a different type is a different key
	v, err = store.Get(ctx, "page", "7")
	require.NoError(err)
	assert.Empty(v)
}

func TestMemStorePurge(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := NewMemStore(8, time.Minute)
	require.NoError(store.Set(ctx, "user", "7", "alice"))
	require.NoError(store.Purge(ctx, "user", "7"))

	v, err := store.Get(ctx, "user", "7")
	require.NoError(err)
	assert.Empty(v)
}

func TestMemStoreEviction(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := NewMemStore(2, time.Minute)
	require.NoError(store.Set(ctx, "user", "1", "a"))
	require.NoError(store.Set(ctx, "user", "2", "b"))
	require.NoError(store.Set(ctx, "user", "3", "c"))

	v, err := store.Get(ctx, "user", "1")
	require.NoError(err)
	assert.Empty(v)

	v, err = store.Get(ctx, "user", "3")
	require.NoError(err)
	assert.Equal("c", v)
}
