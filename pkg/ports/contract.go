package ports

import (
	"context"
	"testing"
	"time"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunThreadStoreContract runs a suite of tests to verify that a ThreadStore implementation
// adheres to the defined interface contract.
func RunThreadStoreContract(t *testing.T, store ThreadStore) {
	ctx := context.Background()
	threadID := "contract-test-thread-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		messages := []domain.Message{
			domain.UserMessage("How do I register to vote?"),
			domain.AssistantMessage("You can register online."),
		}

		err := store.Save(ctx, threadID, messages)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, messages, loaded)
	})

	t.Run("Save replaces history", func(t *testing.T) {
		err := store.Save(ctx, threadID, []domain.Message{domain.UserMessage("only")})
		require.NoError(t, err)

		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "only", loaded[0].Content)
	})

	t.Run("Empty thread", func(t *testing.T) {
		id := threadID + "-empty"
		require.NoError(t, store.Save(ctx, id, nil))
		defer func() { _ = store.Delete(ctx, id) }()

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "an empty thread still exists")
		assert.Empty(t, loaded)
	})

	t.Run("Load is isolated from caller mutation", func(t *testing.T) {
		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		loaded[0].Content = "mutated"

		again, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		assert.Equal(t, "only", again[0].Content)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+threadID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Delete(ctx, threadID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, threadID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound, "Load after Delete should return ErrThreadNotFound")

		assert.NoError(t, store.Delete(ctx, threadID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := threadID + "-1"
		id2 := threadID + "-2"
		_ = store.Save(ctx, id1, []domain.Message{domain.UserMessage("a")})
		_ = store.Save(ctx, id2, []domain.Message{domain.UserMessage("b")})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		threads, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, threads, id1)
		assert.Contains(t, threads, id2)
	})
}
