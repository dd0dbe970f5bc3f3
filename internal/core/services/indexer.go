package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/north/internal/chunker"
	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
	"github.com/custodia-labs/north/internal/logger"
)

// IndexWriter writes documents and their chunks to the search backend.
// Writes are idempotent: indexing the same item twice converges on a
// single document and a single consistent chunk set.
type IndexWriter struct {
	docs     driven.Collection[domain.Document]
	chunks   driven.Collection[domain.DocumentChunk]
	splitter *chunker.Chunker
	retry    retryPolicy
	now      func() time.Time
}

// IndexWriterOption configures the index writer.
type IndexWriterOption func(*IndexWriter)

// WithChunker replaces the default chunker.
func WithChunker(c *chunker.Chunker) IndexWriterOption {
	return func(w *IndexWriter) {
		w.splitter = c
	}
}

// WithRetryPolicy replaces the default write retry policy.
func WithRetryPolicy(p retryPolicy) IndexWriterOption {
	return func(w *IndexWriter) {
		w.retry = p
	}
}

// WithClock replaces the time source. Useful for testing.
func WithClock(now func() time.Time) IndexWriterOption {
	return func(w *IndexWriter) {
		w.now = now
	}
}

// NewIndexWriter creates an index writer over the backend's document
// and chunk collections.
func NewIndexWriter(backend driven.SearchBackend, opts ...IndexWriterOption) *IndexWriter {
	w := &IndexWriter{
		docs:     backend.Documents(),
		chunks:   backend.Chunks(),
		splitter: chunker.New(),
		retry:    defaultRetryPolicy(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Index writes one document. The sequence is:
//
//  1. Hash the content and stamp the document.
//  2. Look for an existing record by source ID, then by content hash.
//     The hash lookup catches renamed copies of known content.
//  3. Delete the stale chunk set of whatever record is being replaced.
//  4. Upsert the document and, when the content is large enough,
//     write the fresh chunk set.
//
// Each backend write goes through the retry policy.
func (w *IndexWriter) Index(ctx context.Context, doc domain.Document) error {
	if doc.SourceID == "" {
		return fmt.Errorf("%w: document has no source ID", domain.ErrInvalidInput)
	}

	now := w.now()
	doc.ContentHash = HashContent(doc.Content)
	doc.IndexedAt = now
	doc.WordCount = len(strings.Fields(doc.Content))

	existing, err := w.findExisting(ctx, doc)
	if err != nil {
		return fmt.Errorf("lookup existing document: %w", err)
	}

	if existing != nil && existing.ID != doc.SourceID {
		// Same content under a different identity (renamed copy).
		// Adopt the new identity so exactly one record remains.
		logger.Debug("replacing duplicate document %s with %s", existing.ID, doc.SourceID)
		if err := w.deleteChunks(ctx, existing.Fields.SourceID); err != nil {
			return fmt.Errorf("delete superseded chunks: %w", err)
		}
		if err := w.write(ctx, func() error { return w.docs.Delete(ctx, existing.ID) }); err != nil {
			return fmt.Errorf("delete superseded document: %w", err)
		}
	} else if existing != nil {
		if err := w.deleteChunks(ctx, doc.SourceID); err != nil {
			return fmt.Errorf("delete stale chunks: %w", err)
		}
	}

	if err := w.write(ctx, func() error { return w.docs.Upsert(ctx, doc.SourceID, doc) }); err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.SourceID, err)
	}

	chunks := w.splitter.Chunk(doc, now)
	for _, chunk := range chunks {
		chunk := chunk
		if err := w.write(ctx, func() error { return w.chunks.Upsert(ctx, chunk.ID, chunk) }); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", chunk.ID, err)
		}
	}
	if len(chunks) > 0 {
		logger.Debug("indexed %s with %d chunks", doc.Path, len(chunks))
	}

	return nil
}

// Exists reports whether a document with the source ID is indexed.
func (w *IndexWriter) Exists(ctx context.Context, sourceID string) (bool, error) {
	_, err := w.docs.Get(ctx, sourceID)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Delete removes a document and its chunks. Deleting an unknown
// source ID is not an error.
func (w *IndexWriter) Delete(ctx context.Context, sourceID string) error {
	if err := w.deleteChunks(ctx, sourceID); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", sourceID, err)
	}
	if err := w.write(ctx, func() error { return w.docs.Delete(ctx, sourceID) }); err != nil {
		return fmt.Errorf("delete document %s: %w", sourceID, err)
	}
	return nil
}

// DeleteByPath removes all documents indexed under a file path, with
// their chunks. Deletion entries in change feeds often carry only the
// path, never the source ID the document was indexed under.
func (w *IndexWriter) DeleteByPath(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}

	hits, err := w.docs.Fetch(ctx, []domain.Filter{{
		Fields: []string{domain.FieldPath},
		Op:     domain.FilterEquals,
		Value:  path,
	}}, 0)
	if err != nil {
		return 0, fmt.Errorf("lookup documents at %s: %w", path, err)
	}

	for _, hit := range hits {
		if err := w.Delete(ctx, hit.Fields.SourceID); err != nil {
			return 0, err
		}
	}
	return len(hits), nil
}

// findExisting looks up the record this document should replace:
// first by source ID, then by content hash.
func (w *IndexWriter) findExisting(ctx context.Context, doc domain.Document) (*driven.Hit[domain.Document], error) {
	hit, err := w.docs.Get(ctx, doc.SourceID)
	if err == nil {
		return hit, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	byHash, err := w.docs.Fetch(ctx, []domain.Filter{{
		Fields: []string{domain.FieldContentHash},
		Op:     domain.FilterEquals,
		Value:  doc.ContentHash,
	}}, 1)
	if err != nil {
		return nil, err
	}
	if len(byHash) == 0 {
		return nil, nil
	}
	return &byHash[0], nil
}

// deleteChunks removes every chunk whose parent is the source ID.
func (w *IndexWriter) deleteChunks(ctx context.Context, parentID string) error {
	stale, err := w.chunks.Fetch(ctx, []domain.Filter{{
		Fields: []string{domain.FieldParentID},
		Op:     domain.FilterEquals,
		Value:  parentID,
	}}, 0)
	if err != nil {
		return err
	}
	for _, chunk := range stale {
		id := chunk.ID
		if err := w.write(ctx, func() error { return w.chunks.Delete(ctx, id) }); err != nil {
			return err
		}
	}
	return nil
}

func (w *IndexWriter) write(ctx context.Context, fn func() error) error {
	return w.retry.do(ctx, fn)
}

// HashContent returns the hex SHA-256 of the content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
