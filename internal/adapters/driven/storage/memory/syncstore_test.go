package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/north/internal/core/domain"
)

func TestSyncStateStore_SaveAndGet(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()
	state := domain.SyncState{
		Path:     "/Projects",
		Cursor:   "cursor-1",
		LastSync: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, store.Save(ctx, state))
	got, err := store.Get(ctx, "/Projects")

	require.NoError(t, err)
	assert.Equal(t, "cursor-1", got.Cursor)
}

func TestSyncStateStore_GetMissingIsNotFound(t *testing.T) {
	store := NewSyncStateStore()

	_, err := store.Get(context.Background(), "/nowhere")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncStateStore_GetReturnsCopy(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.SyncState{Path: "/Projects", Cursor: "original"}))

	got, err := store.Get(ctx, "/Projects")
	require.NoError(t, err)
	got.Cursor = "mutated"

	again, err := store.Get(ctx, "/Projects")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Cursor)
}

func TestSyncStateStore_Delete(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.SyncState{Path: "/Projects", Cursor: "c"}))

	require.NoError(t, store.Delete(ctx, "/Projects"))

	_, err := store.Get(ctx, "/Projects")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
