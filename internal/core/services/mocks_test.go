package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
)

// --- Shared mock implementations for service tests ---

// mockFileSource implements driven.FileSource for testing.
type mockFileSource struct {
	items       []domain.SourceItem
	changes     []domain.ItemChange
	cursor      string
	validateErr error
	syncErr     error
	cursorGone  bool
	content     map[string][]byte
	downloads   int
	closed      bool
}

func (m *mockFileSource) Type() string { return "mock" }

func (m *mockFileSource) Validate(_ context.Context) error { return m.validateErr }

func (m *mockFileSource) FullSync(ctx context.Context) (<-chan domain.SourceItem, <-chan error) {
	items := make(chan domain.SourceItem)
	errs := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errs)

		if m.syncErr != nil {
			errs <- m.syncErr
			return
		}

		for _, item := range m.items {
			select {
			case <-ctx.Done():
				return
			case items <- item:
			}
		}
		errs <- &driven.SyncComplete{NewCursor: m.cursor}
	}()

	return items, errs
}

func (m *mockFileSource) IncrementalSync(ctx context.Context, _ domain.SyncState) (<-chan domain.ItemChange, <-chan error) {
	changes := make(chan domain.ItemChange)
	errs := make(chan error, 1)

	go func() {
		defer close(changes)
		defer close(errs)

		if m.cursorGone {
			errs <- domain.ErrCursorExpired
			return
		}
		if m.syncErr != nil {
			errs <- m.syncErr
			return
		}

		for _, change := range m.changes {
			select {
			case <-ctx.Done():
				return
			case changes <- change:
			}
		}
		errs <- &driven.SyncComplete{NewCursor: m.cursor}
	}()

	return changes, errs
}

func (m *mockFileSource) Download(_ context.Context, path string) ([]byte, error) {
	m.downloads++
	if content, ok := m.content[path]; ok {
		return content, nil
	}
	return []byte("content of " + path), nil
}

func (m *mockFileSource) Close() error {
	m.closed = true
	return nil
}

// mockExtractor implements driven.Extractor for testing.
// It returns the raw bytes as text and parses "key=value" lines into
// metadata so tests can steer extraction through file content.
type mockExtractor struct {
	err error
}

func (m *mockExtractor) Supports(ext string) bool {
	switch ext {
	case ".txt", ".md", ".csv", ".pdf":
		return true
	}
	return false
}

func (m *mockExtractor) Extract(_ context.Context, _ domain.SourceItem, raw []byte) (*driven.ExtractResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := &driven.ExtractResult{Text: string(raw)}
	for _, line := range strings.Split(string(raw), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		switch key {
		case "project":
			result.Meta.Project = value
		case "contractor":
			result.Meta.Contractor = value
		case "doc_type":
			result.Meta.DocType = value
		}
	}
	return result, nil
}

// mockEntityService implements driven.EntityService for testing.
type mockEntityService struct {
	entities   domain.SearchEntities
	refined    domain.SearchEntities
	tags       []string
	extractErr error
	refineErr  error
	extracts   int
	refines    int
	lastHints  *driven.EntityHints
}

func (m *mockEntityService) Extract(_ context.Context, _ string, hints *driven.EntityHints) (domain.SearchEntities, error) {
	m.extracts++
	m.lastHints = hints
	if m.extractErr != nil {
		return domain.SearchEntities{}, m.extractErr
	}
	return m.entities, nil
}

func (m *mockEntityService) Refine(_ context.Context, _ string, _ domain.SearchEntities) (domain.SearchEntities, error) {
	m.refines++
	if m.refineErr != nil {
		return domain.SearchEntities{}, m.refineErr
	}
	return m.refined, nil
}

func (m *mockEntityService) MapToTags(_ context.Context, _ string, _ []string) ([]string, error) {
	return m.tags, nil
}

func (m *mockEntityService) ModelName() string { return "mock-entities" }
func (m *mockEntityService) Close() error      { return nil }

// mockReranker implements driven.Reranker for testing.
// It reverses the candidate order so reordering is observable.
type mockReranker struct {
	err      error
	calls    int
	lastDocs []string
}

func (m *mockReranker) Rerank(_ context.Context, _ string, documents []string, topK int) ([]driven.RerankResult, error) {
	m.calls++
	m.lastDocs = documents
	if m.err != nil {
		return nil, m.err
	}
	if topK > len(documents) {
		topK = len(documents)
	}
	results := make([]driven.RerankResult, 0, topK)
	for i := topK - 1; i >= 0; i-- {
		results = append(results, driven.RerankResult{
			Index: i,
			Score: float64(i + 1),
		})
	}
	return results, nil
}

func (m *mockReranker) ModelName() string { return "mock-reranker" }
func (m *mockReranker) Close() error      { return nil }
