// Package chunker splits large document text into overlapping,
// sentence-aligned chunks for indexing.
package chunker

import (
	"fmt"
	"time"

	"github.com/custodia-labs/north/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultThreshold is the content length below which documents are
// indexed whole, without chunking.
const DefaultThreshold = 500

// Chunker splits document content into overlapping chunks, preferring
// to end each chunk at a sentence boundary.
type Chunker struct {
	chunkSize int
	overlap   int
	threshold int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithThreshold sets the minimum content length for chunking.
func WithThreshold(threshold int) Option {
	return func(c *Chunker) {
		if threshold >= 0 {
			c.threshold = threshold
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		threshold: DefaultThreshold,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ShouldChunk reports whether the content is long enough to chunk.
func (c *Chunker) ShouldChunk(content string) bool {
	return len(content) > c.threshold
}

// Chunk splits the document's content into chunks carrying the
// parent's metadata. Documents at or below the threshold produce no
// chunks. Chunk IDs are derived from the parent ID and position, so
// re-chunking the same document yields the same IDs.
func (c *Chunker) Chunk(doc domain.Document, now time.Time) []domain.DocumentChunk {
	if !c.ShouldChunk(doc.Content) {
		return nil
	}

	pieces := c.split(doc.Content)
	chunks := make([]domain.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, domain.DocumentChunk{
			ID:           fmt.Sprintf("%s#%04d", doc.SourceID, i),
			ParentID:     doc.SourceID,
			ParentName:   doc.Name,
			Path:         doc.Path,
			Index:        i,
			Total:        len(pieces),
			Content:      piece,
			DocumentMeta: doc.DocumentMeta,
			IndexedAt:    now,
		})
	}
	return chunks
}

// split divides text into windows of chunkSize characters, snapping
// each window's end to the last sentence boundary in its back half
// when one exists. Consecutive windows overlap by the configured
// amount, measured from the actual (possibly snapped) end.
func (c *Chunker) split(text string) []string {
	n := len(text)
	estimated := n/(c.chunkSize-c.overlap) + 1
	pieces := make([]string, 0, estimated)

	start := 0
	for start < n {
		end := start + c.chunkSize
		if end >= n {
			pieces = append(pieces, text[start:])
			break
		}

		if cut := lastSentenceEnd(text, start+c.chunkSize/2, end); cut > start {
			end = cut
		}

		pieces = append(pieces, text[start:end])

		// Guaranteed progress even with degenerate overlap settings
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return pieces
}

// lastSentenceEnd returns the index just after the last sentence
// terminator in text[lo:hi), or -1 when there is none. A terminator
// counts only when followed by whitespace, so decimals and file
// extensions don't split sentences.
func lastSentenceEnd(text string, lo, hi int) int {
	for i := hi - 1; i >= lo; i-- {
		switch text[i] {
		case '.', '!', '?':
			if i+1 < len(text) && isSpace(text[i+1]) {
				return i + 1
			}
		case '\n':
			return i + 1
		}
	}
	return -1
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
