package index

import (
	"errors"
	"path/filepath"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.SearchBackend = (*Backend)(nil)

// Backend is the in-process search backend. Each collection carries
// its own keyword index and vector graph; the embedder is shared and
// optional.
type Backend struct {
	docs      *Collection[domain.Document]
	chunks    *Collection[domain.DocumentChunk]
	companies *Collection[domain.Company]
	worklog   *Collection[domain.WorkEntry]
}

// NewBackend creates the backend. A nil embedder disables the vector
// legs; every collection still serves keyword search. A non-empty dir
// makes the backend persistent: each collection keeps its indexes
// under its own subdirectory and restores them on the next start.
func NewBackend(embedder driven.EmbeddingService, dir string) (*Backend, error) {
	sub := func(name string) string {
		if dir == "" {
			return ""
		}
		return filepath.Join(dir, name)
	}

	docs, err := newCollection(embedder, documentProjection, sub("documents"))
	if err != nil {
		return nil, err
	}
	chunks, err := newCollection(embedder, chunkProjection, sub("chunks"))
	if err != nil {
		return nil, err
	}
	companies, err := newCollection(embedder, companyProjection, sub("companies"))
	if err != nil {
		return nil, err
	}
	worklog, err := newCollection(embedder, workEntryProjection, sub("worklog"))
	if err != nil {
		return nil, err
	}

	return &Backend{
		docs:      docs,
		chunks:    chunks,
		companies: companies,
		worklog:   worklog,
	}, nil
}

// Documents is the document-level collection.
func (b *Backend) Documents() driven.Collection[domain.Document] { return b.docs }

// Chunks is the chunk-level collection.
func (b *Backend) Chunks() driven.Collection[domain.DocumentChunk] { return b.chunks }

// Companies is the contractor and supplier directory.
func (b *Backend) Companies() driven.Collection[domain.Company] { return b.companies }

// WorkLog is the per-project work history.
func (b *Backend) WorkLog() driven.Collection[domain.WorkEntry] { return b.worklog }

// Close saves disk-backed collections and releases their indexes.
func (b *Backend) Close() error {
	return errors.Join(
		b.docs.close(),
		b.chunks.close(),
		b.companies.close(),
		b.worklog.close(),
	)
}
