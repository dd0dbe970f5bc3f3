package services

import (
	"strings"
	"unicode"

	"github.com/custodia-labs/north/internal/core/domain"
)

// Alpha values for hybrid strategies. Filtered strategies lean on the
// filters for precision and balance the legs evenly; the filterless
// fallback leans semantic to widen recall.
const (
	filteredAlpha = 0.5
	fallbackAlpha = 0.7
)

// vectorTermThreshold is the minimum combined term length before a
// vector-only strategy is worth trying. Below it the terms are too
// short to embed meaningfully.
const vectorTermThreshold = 10

// StrategyBuilder converts extracted entities into an ordered list of
// executable search strategies, most specific first.
type StrategyBuilder struct{}

// NewStrategyBuilder creates a strategy builder.
func NewStrategyBuilder() *StrategyBuilder {
	return &StrategyBuilder{}
}

// Build produces the strategy ladder for a query. The raw query is
// used for the fallback when extraction found nothing. The result is
// never empty: the filterless hybrid fallback is always present.
func (b *StrategyBuilder) Build(query string, e domain.SearchEntities) []domain.SearchStrategy {
	var strategies []domain.SearchStrategy

	terms := e.QueryText()
	filters := buildFilters(e)

	if terms != "" {
		strategies = append(strategies, domain.SearchStrategy{
			Kind:        domain.StrategyHybrid,
			Query:       terms,
			Alpha:       filteredAlpha,
			Filters:     filters,
			Description: "filtered hybrid over extracted terms",
		})
	}

	if len(terms) > vectorTermThreshold {
		strategies = append(strategies, domain.SearchStrategy{
			Kind:        domain.StrategyVector,
			Query:       terms,
			Filters:     filters,
			Description: "semantic search over extracted terms",
		})
	}

	if kw := keywordQuery(e); kw != "" {
		strategies = append(strategies, domain.SearchStrategy{
			Kind:        domain.StrategyKeyword,
			Query:       kw,
			Description: "exact match on identifier",
		})
	}

	// Metadata-only scan: catches documents whose text never mentions
	// the extracted terms but whose fields do.
	if len(filters) > 0 {
		strategies = append(strategies, domain.SearchStrategy{
			Kind:        domain.StrategyFilterOnly,
			Filters:     filters,
			Description: "metadata-only scan",
		})
	}

	fallback := terms
	if fallback == "" {
		fallback = query
	}
	strategies = append(strategies, domain.SearchStrategy{
		Kind:        domain.StrategyHybrid,
		Query:       fallback,
		Alpha:       fallbackAlpha,
		Description: "filterless hybrid fallback",
	})

	return strategies
}

// buildFilters maps entities onto index filters. Contractor matches
// the contractor OR vendor field; every filter is ANDed with the rest.
func buildFilters(e domain.SearchEntities) []domain.Filter {
	var filters []domain.Filter
	if e.Project != "" {
		filters = append(filters, domain.Filter{
			Fields: []string{domain.FieldProject},
			Op:     domain.FilterContains,
			Value:  e.Project,
		})
	}
	if e.Contractor != "" {
		filters = append(filters, domain.Filter{
			Fields: []string{domain.FieldContractor, domain.FieldVendor},
			Op:     domain.FilterContains,
			Value:  e.Contractor,
		})
	}
	if e.DocType != "" {
		filters = append(filters, domain.Filter{
			Fields: []string{domain.FieldDocType},
			Op:     domain.FilterContains,
			Value:  e.DocType,
		})
	}
	return filters
}

// keywordQuery returns the exact-match query for identifier-shaped
// intent: a named file, or keywords that look like invoice or permit
// numbers. Returns empty when nothing warrants exact matching.
func keywordQuery(e domain.SearchEntities) string {
	if e.SpecificFile != "" {
		return e.SpecificFile
	}
	var ids []string
	for _, kw := range e.Keywords {
		if isIdentifier(kw) {
			ids = append(ids, kw)
		}
	}
	return strings.Join(ids, " ")
}

// isIdentifier reports whether a keyword looks like a document number:
// all digits once dots are removed (e.g. "1042", "2024.003").
func isIdentifier(kw string) bool {
	stripped := strings.ReplaceAll(kw, ".", "")
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
