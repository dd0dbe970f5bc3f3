package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.SearchBackend = (*Backend)(nil)

// Backend is an in-memory implementation of driven.SearchBackend.
// Scoring is term overlap rather than BM25 or embeddings, which is
// enough for tests and offline development.
type Backend struct {
	docs      *Collection[domain.Document]
	chunks    *Collection[domain.DocumentChunk]
	companies *Collection[domain.Company]
	worklog   *Collection[domain.WorkEntry]
}

// NewBackend creates an in-memory search backend with the standard
// four collections.
func NewBackend() *Backend {
	return &Backend{
		docs:      NewCollection(DocumentFields),
		chunks:    NewCollection(ChunkFields),
		companies: NewCollection(CompanyFields),
		worklog:   NewCollection(WorkEntryFields),
	}
}

// Documents is the document-level collection.
func (b *Backend) Documents() driven.Collection[domain.Document] { return b.docs }

// Chunks is the chunk-level collection.
func (b *Backend) Chunks() driven.Collection[domain.DocumentChunk] { return b.chunks }

// Companies is the contractor and supplier directory.
func (b *Backend) Companies() driven.Collection[domain.Company] { return b.companies }

// WorkLog is the per-project work history.
func (b *Backend) WorkLog() driven.Collection[domain.WorkEntry] { return b.worklog }

// Close releases resources. No-op for the in-memory backend.
func (b *Backend) Close() error { return nil }

// Collection is an in-memory implementation of driven.Collection.
type Collection[T any] struct {
	mu      sync.RWMutex
	records map[string]T
	fields  func(T) map[string]string
}

// NewCollection creates a collection using the given field projection
// for matching and filtering.
func NewCollection[T any](fields func(T) map[string]string) *Collection[T] {
	return &Collection[T]{
		records: make(map[string]T),
		fields:  fields,
	}
}

// Upsert inserts or replaces the record with the given ID.
func (c *Collection[T]) Upsert(_ context.Context, id string, record T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[id] = record
	return nil
}

// Delete removes the record. Deleting an absent ID is not an error.
func (c *Collection[T]) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, id)
	return nil
}

// Get fetches a record by ID.
func (c *Collection[T]) Get(_ context.Context, id string) (*driven.Hit[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &driven.Hit[T]{ID: id, Fields: record}, nil
}

// Keyword scores records by the fraction of query terms found in
// their fields.
func (c *Collection[T]) Keyword(_ context.Context, query string, filters []domain.Filter, limit int) ([]driven.Hit[T], error) {
	return c.scan(query, filters, limit), nil
}

// Vector approximates semantic search with the same term overlap
// scoring as Keyword. The in-memory backend has no embeddings.
func (c *Collection[T]) Vector(_ context.Context, query string, filters []domain.Filter, limit int) ([]driven.Hit[T], error) {
	return c.scan(query, filters, limit), nil
}

// Hybrid ignores alpha and scores like Keyword.
func (c *Collection[T]) Hybrid(_ context.Context, query string, _ float64, filters []domain.Filter, limit int) ([]driven.Hit[T], error) {
	return c.scan(query, filters, limit), nil
}

// Fetch returns records matching the filters in stable ID order.
func (c *Collection[T]) Fetch(_ context.Context, filters []domain.Filter, limit int) ([]driven.Hit[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var hits []driven.Hit[T]
	for _, id := range ids {
		record := c.records[id]
		if !MatchesFilters(c.fields(record), filters) {
			continue
		}
		hits = append(hits, driven.Hit[T]{ID: id, Fields: record})
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// Count returns the number of records in the collection.
func (c *Collection[T]) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records), nil
}

func (c *Collection[T]) scan(query string, filters []domain.Filter, limit int) []driven.Hit[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))

	var hits []driven.Hit[T]
	for id, record := range c.records {
		fields := c.fields(record)
		if !MatchesFilters(fields, filters) {
			continue
		}
		score := overlapScore(fields, terms)
		if score <= 0 {
			continue
		}
		hits = append(hits, driven.Hit[T]{ID: id, Score: score, Fields: record})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// MatchesFilters reports whether a record's fields satisfy every
// filter. Within one filter any named field may match; the filters
// themselves are ANDed.
func MatchesFilters(fields map[string]string, filters []domain.Filter) bool {
	for _, f := range filters {
		matched := false
		for _, name := range f.Fields {
			value, ok := fields[name]
			if !ok {
				continue
			}
			switch f.Op {
			case domain.FilterEquals:
				matched = value == f.Value
			case domain.FilterContains:
				matched = strings.Contains(strings.ToLower(value), strings.ToLower(f.Value))
			}
			if matched {
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func overlapScore(fields map[string]string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	var joined strings.Builder
	for _, v := range fields {
		joined.WriteString(strings.ToLower(v))
		joined.WriteByte(' ')
	}
	text := joined.String()

	matched := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
