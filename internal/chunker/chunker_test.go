package chunker

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/north/internal/core/domain"
)

func testDoc(content string) domain.Document {
	return domain.Document{
		SourceID: "id:abc123",
		Name:     "site notes.txt",
		Path:     "/North/Docs/site notes.txt",
		Content:  content,
		DocumentMeta: domain.DocumentMeta{
			Project:    "Maple Street",
			Contractor: "ABC Concrete",
		},
	}
}

func TestChunk_ShortContentNotChunked(t *testing.T) {
	c := New()
	doc := testDoc(strings.Repeat("a", 500))

	chunks := c.Chunk(doc, time.Now())

	assert.Empty(t, chunks)
	assert.False(t, c.ShouldChunk(doc.Content))
}

func TestChunk_LongContentChunked(t *testing.T) {
	c := New()
	doc := testDoc(strings.Repeat("word ", 600)) // 3000 chars

	chunks := c.Chunk(doc, time.Now())

	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), DefaultChunkSize)
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, len(chunks), chunk.Total)
		assert.Equal(t, "id:abc123", chunk.ParentID)
		assert.Equal(t, "site notes.txt", chunk.ParentName)
		assert.Equal(t, "Maple Street", chunk.Project)
		assert.Equal(t, "ABC Concrete", chunk.Contractor)
	}
}

func TestChunk_ConsecutiveChunksOverlap(t *testing.T) {
	c := New()
	doc := testDoc(strings.Repeat("x", 2500))

	chunks := c.Chunk(doc, time.Now())

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Content
		tail := prev[len(prev)-DefaultChunkOverlap:]
		assert.True(t, strings.HasPrefix(chunks[i].Content, tail),
			"chunk %d should start with the previous chunk's tail", i)
	}
}

func TestChunk_DeterministicIDs(t *testing.T) {
	c := New()
	doc := testDoc(strings.Repeat("word ", 600))

	first := c.Chunk(doc, time.Now())
	second := c.Chunk(doc, time.Now())

	require.Equal(t, len(first), len(second))
	assert.Equal(t, "id:abc123#0000", first[0].ID)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Content, second[i].Content)
	}
}

func TestSplit_SnapsToSentenceBoundary(t *testing.T) {
	c := New()

	// One sentence ends inside the back half of the first window
	sentence := strings.Repeat("y", 800) + ". "
	text := sentence + strings.Repeat("z", 1000)

	pieces := c.split(text)

	require.Greater(t, len(pieces), 1)
	assert.True(t, strings.HasSuffix(pieces[0], "."),
		"first chunk should end at the sentence boundary")
}

func TestSplit_NoBoundaryUsesFullWindow(t *testing.T) {
	c := New()
	text := strings.Repeat("q", 2200)

	pieces := c.split(text)

	require.Greater(t, len(pieces), 1)
	assert.Len(t, pieces[0], DefaultChunkSize)
}

func TestLastSentenceEnd(t *testing.T) {
	tests := []struct {
		name string
		text string
		lo   int
		hi   int
		want int
	}{
		{
			name: "period followed by space",
			text: "done. next",
			lo:   0,
			hi:   10,
			want: 5,
		},
		{
			name: "decimal point not a boundary",
			text: "cost 12.50 total",
			lo:   0,
			hi:   16,
			want: -1,
		},
		{
			name: "newline is a boundary",
			text: "line one\nline two",
			lo:   0,
			hi:   17,
			want: 9,
		},
		{
			name: "no terminator",
			text: "nothing here",
			lo:   0,
			hi:   12,
			want: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lastSentenceEnd(tt.text, tt.lo, tt.hi))
		})
	}
}
