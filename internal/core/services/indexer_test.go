package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/north/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/north/internal/core/domain"
)

func instantWriter(backend *memory.Backend) *IndexWriter {
	p, _ := instantRetryPolicy(3)
	return NewIndexWriter(backend, WithRetryPolicy(p))
}

func TestIndexWriter_IndexSmallDocument(t *testing.T) {
	backend := memory.NewBackend()
	w := instantWriter(backend)
	ctx := context.Background()

	doc := domain.Document{
		SourceID: "id:a1",
		Name:     "note.txt",
		Path:     "/North/note.txt",
		Content:  "short note about the permit",
	}
	require.NoError(t, w.Index(ctx, doc))

	hit, err := backend.Documents().Get(ctx, "id:a1")
	require.NoError(t, err)
	assert.Equal(t, HashContent(doc.Content), hit.Fields.ContentHash)
	assert.Equal(t, 5, hit.Fields.WordCount)
	assert.False(t, hit.Fields.IndexedAt.IsZero())

	// Below the chunking threshold: no chunks written
	count, err := backend.Chunks().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIndexWriter_IndexLargeDocumentWritesChunks(t *testing.T) {
	backend := memory.NewBackend()
	w := instantWriter(backend)
	ctx := context.Background()

	doc := domain.Document{
		SourceID: "id:big",
		Name:     "contract.txt",
		Path:     "/North/contract.txt",
		Content:  strings.Repeat("scope of work. ", 200), // 3000 chars
	}
	require.NoError(t, w.Index(ctx, doc))

	count, err := backend.Chunks().Count(ctx)
	require.NoError(t, err)
	assert.Greater(t, count, 1)
}

func TestIndexWriter_Idempotent(t *testing.T) {
	backend := memory.NewBackend()
	w := instantWriter(backend)
	ctx := context.Background()

	doc := domain.Document{
		SourceID: "id:big",
		Name:     "contract.txt",
		Path:     "/North/contract.txt",
		Content:  strings.Repeat("scope of work. ", 200),
	}
	require.NoError(t, w.Index(ctx, doc))

	docsBefore, _ := backend.Documents().Count(ctx)
	chunksBefore, _ := backend.Chunks().Count(ctx)

	require.NoError(t, w.Index(ctx, doc))

	docsAfter, _ := backend.Documents().Count(ctx)
	chunksAfter, _ := backend.Chunks().Count(ctx)
	assert.Equal(t, docsBefore, docsAfter)
	assert.Equal(t, chunksBefore, chunksAfter)
}

func TestIndexWriter_ShrinkingDocumentDropsStaleChunks(t *testing.T) {
	backend := memory.NewBackend()
	w := instantWriter(backend)
	ctx := context.Background()

	doc := domain.Document{
		SourceID: "id:shrink",
		Name:     "notes.txt",
		Path:     "/North/notes.txt",
		Content:  strings.Repeat("detail. ", 400), // chunked
	}
	require.NoError(t, w.Index(ctx, doc))

	before, _ := backend.Chunks().Count(ctx)
	require.Greater(t, before, 0)

	// Re-index with content below the threshold
	doc.Content = "now it is short"
	require.NoError(t, w.Index(ctx, doc))

	after, err := backend.Chunks().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, after, "stale chunks must be removed when the document shrinks")
}

func TestIndexWriter_RenamedCopyKeepsOneRecord(t *testing.T) {
	backend := memory.NewBackend()
	w := instantWriter(backend)
	ctx := context.Background()

	content := strings.Repeat("identical content. ", 100)
	require.NoError(t, w.Index(ctx, domain.Document{
		SourceID: "id:old",
		Name:     "report.txt",
		Path:     "/North/report.txt",
		Content:  content,
	}))

	// Same content reappears under a new identity and path
	require.NoError(t, w.Index(ctx, domain.Document{
		SourceID: "id:new",
		Name:     "report-final.txt",
		Path:     "/North/report-final.txt",
		Content:  content,
	}))

	count, err := backend.Documents().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "renamed copy must not produce a second record")

	_, err = backend.Documents().Get(ctx, "id:old")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	hit, err := backend.Documents().Get(ctx, "id:new")
	require.NoError(t, err)
	assert.Equal(t, "/North/report-final.txt", hit.Fields.Path)

	// No chunks left pointing at the superseded identity
	stale, err := backend.Chunks().Fetch(ctx, []domain.Filter{{
		Fields: []string{domain.FieldParentID},
		Op:     domain.FilterEquals,
		Value:  "id:old",
	}}, 0)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestIndexWriter_Delete(t *testing.T) {
	backend := memory.NewBackend()
	w := instantWriter(backend)
	ctx := context.Background()

	require.NoError(t, w.Index(ctx, domain.Document{
		SourceID: "id:gone",
		Name:     "old.txt",
		Path:     "/North/old.txt",
		Content:  strings.Repeat("obsolete. ", 200),
	}))

	require.NoError(t, w.Delete(ctx, "id:gone"))

	_, err := backend.Documents().Get(ctx, "id:gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	chunks, _ := backend.Chunks().Count(ctx)
	assert.Zero(t, chunks)

	// Deleting again is not an error
	assert.NoError(t, w.Delete(ctx, "id:gone"))
}

func TestIndexWriter_DeleteByPath(t *testing.T) {
	backend := memory.NewBackend()
	w := instantWriter(backend)
	ctx := context.Background()

	require.NoError(t, w.Index(ctx, domain.Document{
		SourceID: "id:gone",
		Name:     "gone.txt",
		Path:     "/North/gone.txt",
		Content:  strings.Repeat("obsolete. ", 200),
	}))

	removed, err := w.DeleteByPath(ctx, "/North/gone.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = backend.Documents().Get(ctx, "id:gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	chunks, _ := backend.Chunks().Count(ctx)
	assert.Zero(t, chunks)

	// An unknown path removes nothing and is not an error.
	removed, err = w.DeleteByPath(ctx, "/North/never-indexed.txt")
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = w.DeleteByPath(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndexWriter_Exists(t *testing.T) {
	backend := memory.NewBackend()
	w := instantWriter(backend)
	ctx := context.Background()

	exists, err := w.Exists(ctx, "id:nope")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, w.Index(ctx, domain.Document{
		SourceID: "id:yes",
		Name:     "a.txt",
		Path:     "/North/a.txt",
		Content:  "hello",
	}))

	exists, err = w.Exists(ctx, "id:yes")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIndexWriter_RejectsMissingSourceID(t *testing.T) {
	backend := memory.NewBackend()
	w := instantWriter(backend)

	err := w.Index(context.Background(), domain.Document{Name: "x.txt"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndexWriter_ClockIsInjectable(t *testing.T) {
	backend := memory.NewBackend()
	p, _ := instantRetryPolicy(3)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	w := NewIndexWriter(backend, WithRetryPolicy(p), WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	require.NoError(t, w.Index(ctx, domain.Document{
		SourceID: "id:t",
		Name:     "t.txt",
		Path:     "/North/t.txt",
		Content:  "timed",
	}))

	hit, err := backend.Documents().Get(ctx, "id:t")
	require.NoError(t, err)
	assert.Equal(t, fixed, hit.Fields.IndexedAt)
}
