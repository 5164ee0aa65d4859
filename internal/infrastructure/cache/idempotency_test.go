package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryIdempotencyStore()
	store.now = func() time.Time { return clock }

	first, err := store.MarkProcessed(ctx, "shopify:abc", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, _ := store.MarkProcessed(ctx, "shopify:abc", time.Hour)
	assert.False(t, again)

	other, _ := store.MarkProcessed(ctx, "etsy:abc", time.Hour)
	assert.True(t, other)

	clock = clock.Add(2 * time.Hour)
	expired, _ := store.MarkProcessed(ctx, "shopify:abc", time.Hour)
	assert.True(t, expired)
}

func TestMemoryIdempotencyStore_Forget(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore()

	first, err := store.MarkProcessed(ctx, "shopify:abc", time.Hour)
	require.NoError(t, err)
	require.True(t, first)

	require.NoError(t, store.Forget(ctx, "shopify:abc"))
	again, err := store.MarkProcessed(ctx, "shopify:abc", time.Hour)
	require.NoError(t, err)
	assert.True(t, again)

	assert.NoError(t, store.Forget(ctx, "never-seen"))
}

func TestNewRedisIdempotencyStore_BadURL(t *testing.T) {
	_, err := NewRedisIdempotencyStore(context.Background(), "not-a-url")
	assert.Error(t, err)
}
