package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDedupeStore(t *testing.T) {
	store := NewInMemoryDedupeStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first mark is fresh, second is not", func(t *testing.T) {
		fresh, err := store.MarkSeen(ctx, "msg-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = store.MarkSeen(ctx, "msg-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, fresh)
	})

	t.Run("seen reflects marked state", func(t *testing.T) {
		seen, err := store.Seen(ctx, "msg-1")
		require.NoError(t, err)
		assert.True(t, seen)

		seen, err = store.Seen(ctx, "msg-never")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("expired entries are fresh again", func(t *testing.T) {
		fresh, err := store.MarkSeen(ctx, "msg-2", time.Millisecond)
		require.NoError(t, err)
		assert.True(t, fresh)

		time.Sleep(5 * time.Millisecond)

		fresh, err = store.MarkSeen(ctx, "msg-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		s := NewInMemoryDedupeStore()
		assert.NoError(t, s.Close())
		assert.NoError(t, s.Close())
	})
}
