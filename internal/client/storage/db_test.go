package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorgalore/storysync/internal/client/models"

	_ "modernc.org/sqlite"
)

func TestOpen_CreatesCollections(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "stories.db")

	store, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	got, err := store.Stories.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	pending, err := store.Queue.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOpen_IdempotentAndKeepsData(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "stories.db")

	store, err := Open(ctx, dsn)
	require.NoError(t, err)

	require.NoError(t, store.Stories.ReplaceAll(ctx, []models.CachedStory{
		{ID: "a", Description: "d", CreatedAt: "t", Name: "n"},
	}))
	require.NoError(t, store.Close())

	// second open migrates again without destroying anything
	store2, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store2.Close() })

	got, err := store2.Stories.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestOpen_UnavailableMedium(t *testing.T) {
	ctx := context.Background()

	// a directory path is not a usable database file
	_, err := Open(ctx, t.TempDir())
	assert.ErrorIs(t, err, ErrUnavailable)
}
