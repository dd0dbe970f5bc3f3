package driven

import (
	"context"

	"github.com/custodia-labs/north/internal/core/domain"
)

// EntityHints are known values fed to the extraction prompt so the
// model maps informal names onto the vocabulary actually indexed.
type EntityHints struct {
	// Projects are project names present in the index.
	Projects []string

	// Contractors are contractor names present in the index.
	Contractors []string
}

// EntityService extracts structured search intent from natural
// language queries using a language model.
// This is an optional service - when nil, searches fall back to a
// single filterless hybrid strategy.
type EntityService interface {
	// Extract parses a query into entities. Hints may be nil.
	Extract(ctx context.Context, query string, hints *EntityHints) (domain.SearchEntities, error)

	// Refine produces a second-pass interpretation after a search
	// returned nothing: looser terms, corrected names, dropped
	// over-specific constraints.
	Refine(ctx context.Context, query string, previous domain.SearchEntities) (domain.SearchEntities, error)

	// MapToTags maps a query onto a known tag vocabulary.
	// Returns the matching tags, possibly empty.
	MapToTags(ctx context.Context, query string, known []string) ([]string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
