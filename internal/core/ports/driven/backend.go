package driven

import (
	"context"

	"github.com/custodia-labs/north/internal/core/domain"
)

// Hit is a scored record returned from a collection query.
type Hit[T any] struct {
	// ID is the record's identifier within the collection.
	ID string

	// Score is the relevance score, higher is better.
	// Zero for filter-only fetches.
	Score float64

	// Fields is the stored record.
	Fields T
}

// Collection provides search and write operations over one record type.
// Each collection is typed: documents, chunks, companies and work
// entries are separate collections with explicit fields, not property
// bags sharing a schema.
type Collection[T any] interface {
	// Upsert inserts or replaces the record with the given ID.
	Upsert(ctx context.Context, id string, record T) error

	// Delete removes the record. Deleting an absent ID is not an error.
	Delete(ctx context.Context, id string) error

	// Get fetches a record by ID. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*Hit[T], error)

	// Keyword runs exact term matching.
	Keyword(ctx context.Context, query string, filters []domain.Filter, limit int) ([]Hit[T], error)

	// Vector runs semantic similarity search. Degrades to Keyword when
	// no embedding service is configured.
	Vector(ctx context.Context, query string, filters []domain.Filter, limit int) ([]Hit[T], error)

	// Hybrid blends keyword and vector scores. Alpha weights the
	// vector leg: 1.0 is vector only, 0.0 is keyword only.
	Hybrid(ctx context.Context, query string, alpha float64, filters []domain.Filter, limit int) ([]Hit[T], error)

	// Fetch returns records matching the filters with no scoring,
	// in stable ID order. A nil filter set matches everything; a
	// limit of zero means no limit.
	Fetch(ctx context.Context, filters []domain.Filter, limit int) ([]Hit[T], error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)
}

// SearchBackend groups the typed collections of the index.
type SearchBackend interface {
	// Documents is the document-level collection.
	Documents() Collection[domain.Document]

	// Chunks is the chunk-level collection.
	Chunks() Collection[domain.DocumentChunk]

	// Companies is the contractor and supplier directory.
	Companies() Collection[domain.Company]

	// WorkLog is the per-project work history.
	WorkLog() Collection[domain.WorkEntry]

	// Close releases resources.
	Close() error
}
