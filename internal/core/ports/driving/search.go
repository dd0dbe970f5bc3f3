package driving

import (
	"context"

	"github.com/custodia-labs/north/internal/core/domain"
)

// SearchOptions configures a search request.
type SearchOptions struct {
	// MaxResults caps the returned results. Zero means the default.
	MaxResults int
}

// SearchResponse is the outcome of an orchestrated search.
type SearchResponse struct {
	// RequestID identifies the request, for correlating with logs.
	RequestID string

	// Results are the ranked results, best first.
	Results []domain.RankedResult

	// Entities is the parsed intent the search was driven by.
	Entities domain.SearchEntities

	// StrategiesTried is how many strategies were executed.
	StrategiesTried int

	// Refined is true when the refinement round was used.
	Refined bool

	// Reranked is true when a reranker reordered the results.
	Reranked bool
}

// SearchOrchestrator turns natural language queries into ranked
// document results.
type SearchOrchestrator interface {
	// Search runs the full pipeline: entity extraction, strategy
	// building, execution with fallback, fusion, ranking and
	// optional reranking.
	Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error)

	// SearchWithContext is Search with conversational carry-over:
	// follow-up queries referring to "that" or "it" inherit the
	// previous turn's project and contractor.
	SearchWithContext(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error)
}
