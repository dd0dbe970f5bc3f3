package domain

import "strings"

// SearchEntities is the structured intent parsed from a natural
// language query. Empty fields mean the query did not mention them.
type SearchEntities struct {
	// Project is the project name mentioned in the query.
	Project string

	// Contractor is the contractor or company mentioned in the query.
	Contractor string

	// DocType is the document type mentioned (invoice, permit, etc).
	DocType string

	// Keywords are the remaining meaningful terms.
	Keywords []string

	// SpecificFile is set when the query names an exact file.
	SpecificFile string

	// DateFrom and DateTo bound the query's date range, when given.
	// Stored as written (e.g. "2024-01") since extraction is lossy.
	DateFrom string
	DateTo   string

	// AmountMin and AmountMax bound invoice amounts, when given.
	AmountMin float64
	AmountMax float64
}

// IsEmpty reports whether extraction found nothing usable.
func (e SearchEntities) IsEmpty() bool {
	return e.Project == "" && e.Contractor == "" && e.DocType == "" &&
		len(e.Keywords) == 0 && e.SpecificFile == ""
}

// Terms returns the searchable terms in a stable order:
// project, contractor, doc type, then keywords.
func (e SearchEntities) Terms() []string {
	terms := make([]string, 0, 3+len(e.Keywords))
	for _, t := range []string{e.Project, e.Contractor, e.DocType} {
		if t != "" {
			terms = append(terms, t)
		}
	}
	terms = append(terms, e.Keywords...)
	return terms
}

// QueryText joins the terms into a single search string.
func (e SearchEntities) QueryText() string {
	return strings.Join(e.Terms(), " ")
}

// Inherit fills unset Project and Contractor from a previous turn's
// entities. Used when a follow-up query says "that" or "it".
func (e SearchEntities) Inherit(prev SearchEntities) SearchEntities {
	if e.Project == "" {
		e.Project = prev.Project
	}
	if e.Contractor == "" {
		e.Contractor = prev.Contractor
	}
	return e
}

// Canonical field names shared by filters and the index schema.
const (
	FieldName        = "name"
	FieldPath        = "path"
	FieldContent     = "content"
	FieldProject     = "project"
	FieldContractor  = "contractor"
	FieldVendor      = "vendor"
	FieldDocType     = "doc_type"
	FieldSourceID    = "source_id"
	FieldContentHash = "content_hash"
	FieldParentID    = "parent_id"
	FieldCompany     = "company"
	FieldServices    = "services"
	FieldTags        = "tags"
)

// FilterOp selects how a Filter matches field values.
type FilterOp int

const (
	// FilterContains matches case-insensitive substrings.
	FilterContains FilterOp = iota

	// FilterEquals matches the exact value.
	FilterEquals
)

// Filter constrains a search to records whose fields match a value.
// A record matches when ANY of the named fields matches; multiple
// filters on a strategy are ANDed together.
type Filter struct {
	Fields []string
	Op     FilterOp
	Value  string
}

// StrategyKind identifies how a search strategy queries the index.
type StrategyKind int

const (
	// StrategyHybrid blends keyword and vector scores.
	StrategyHybrid StrategyKind = iota

	// StrategyVector uses semantic similarity only.
	StrategyVector

	// StrategyKeyword uses exact term matching only.
	StrategyKeyword

	// StrategyFilterOnly scans by metadata filters alone, with no
	// ranking signal beyond the filters.
	StrategyFilterOnly
)

// String returns the strategy kind name.
func (k StrategyKind) String() string {
	switch k {
	case StrategyHybrid:
		return "hybrid"
	case StrategyVector:
		return "vector"
	case StrategyKeyword:
		return "keyword"
	case StrategyFilterOnly:
		return "filter-only"
	default:
		return "unknown"
	}
}

// SearchStrategy is one concrete way to execute a query.
// The strategy builder produces an ordered list of these and the
// executor runs them all, folding their results together.
type SearchStrategy struct {
	// Kind selects the query mechanism.
	Kind StrategyKind

	// Query is the text to search for.
	Query string

	// Alpha balances vector (1.0) against keyword (0.0) for hybrid.
	Alpha float64

	// Filters constrain the candidate set. ANDed together.
	Filters []Filter

	// Description says what the strategy is trying, for logs.
	Description string
}

// SearchHit is one fused, document-level search result.
// Chunk hits are folded up into their parent document.
type SearchHit struct {
	// Document is the matched document. For hits synthesised from
	// chunks the Content holds the best matching chunk's text.
	Document Document

	// Score is the backend relevance score, higher is better.
	Score float64

	// FromChunks is true when the parent was not hit directly and
	// this result was synthesised from its chunks.
	FromChunks bool

	// MatchedChunks is how many chunks of the parent matched.
	MatchedChunks int
}

// RankedResult is a SearchHit with its heuristic relevance bonus.
type RankedResult struct {
	SearchHit

	// Bonus is the entity-match bonus added during ranking.
	Bonus int
}
