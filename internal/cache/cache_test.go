package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", got)

	require.NoError(t, store.Del(ctx, "k"))
	_, ok, _ = store.Get(ctx, "k")
	require.False(t, ok)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	time.Sleep(10 * time.Millisecond)
	_, ok, _ := store.Get(ctx, "k")
	require.True(t, ok)
}

func TestContentKey_SensitiveToParameters(t *testing.T) {
	base := ContentKey("ai_summary", "content", "model-a", 0.3, 90000)
	require.Equal(t, base, ContentKey("ai_summary", "content", "model-a", 0.3, 90000))
	require.NotEqual(t, base, ContentKey("ai_summary", "content", "model-b", 0.3, 90000))
	require.NotEqual(t, base, ContentKey("ai_summary", "content", "model-a", 0.7, 90000))
	require.NotEqual(t, base, ContentKey("ai_summary", "content", "model-a", 0.3, 1000))
	require.NotEqual(t, base, ContentKey("ai_chunk", "content", "model-a", 0.3, 90000))
}

func TestKeyHelpers_Namespaced(t *testing.T) {
	require.NotEqual(t, URLDocKey("https://a"), WebContentKey("https://a"))
	require.Equal(t, "summary:doc-1", SummaryKey("doc-1"))
}
