package domain

import "strings"

// Company is an entry in the contractor and supplier directory.
type Company struct {
	// Name is the company name, the natural key of the directory.
	Name string

	// Services are the service tags the company provides
	// (e.g. "concrete", "glazing", "plumbing").
	Services []string

	// Phone is the primary contact number.
	Phone string

	// Email lists known contact addresses.
	Email []string

	// Hired is true when the company has been engaged before.
	Hired bool

	// Notes holds free-form remarks about the company.
	Notes string
}

// ProvidesService reports whether any of the company's service tags
// contains the term, case-insensitively.
func (c Company) ProvidesService(term string) bool {
	return containsFold(c.Services, term)
}

// WorkEntry records work a company performed on a project.
type WorkEntry struct {
	// Company is the company that did the work.
	Company string

	// Project is the project the work belongs to.
	Project string

	// Scope describes what was done.
	Scope []string

	// Tags classify the work for tag-based lookup.
	Tags []string

	// Cost is the total cost of the work, zero when unknown.
	Cost float64

	// Status is the current state of the engagement.
	Status string

	// Rehire records whether the company would be hired again.
	Rehire string

	// PerformanceNotes hold observations about how the work went.
	PerformanceNotes []string

	// KnowledgeGained captures lessons learned on the engagement.
	KnowledgeGained string
}

// HasTag reports whether the entry carries the exact tag,
// case-insensitively.
func (w WorkEntry) HasTag(tag string) bool {
	return equalsFold(w.Tags, tag)
}

// QueryType classifies a directory question.
type QueryType int

const (
	// QueryListAll asks for every company providing a service.
	QueryListAll QueryType = iota

	// QueryFindByProject asks who worked on a project.
	QueryFindByProject

	// QueryGetContact asks for contact details of named companies.
	QueryGetContact

	// QueryGeneral is everything else.
	QueryGeneral
)

// String returns the query type name.
func (t QueryType) String() string {
	switch t {
	case QueryListAll:
		return "list_all"
	case QueryFindByProject:
		return "find_by_project"
	case QueryGetContact:
		return "get_contact"
	case QueryGeneral:
		return "general"
	default:
		return "unknown"
	}
}

// DirectoryResult is one company in a directory answer, optionally
// joined with the work entry that matched.
type DirectoryResult struct {
	// Company is the directory entry. For work-log matches whose
	// company has no directory entry, only Name is set.
	Company Company

	// Work is the work entry that matched, if any.
	Work *WorkEntry

	// Score is the retrieval score. Zero for exhaustive scans.
	Score float64

	// ContactUnavailable is true when the company appeared in the
	// work log but has no directory entry to take contacts from.
	ContactUnavailable bool

	// MatchedTag is the tag that matched, for tag-based answers.
	MatchedTag string
}

// DirectoryAnswer is the response to a directory question.
type DirectoryAnswer struct {
	// Type is how the question was classified.
	Type QueryType

	// Results are the matching companies, best first.
	Results []DirectoryResult

	// Complete is true when Results is exhaustive rather than top-k.
	Complete bool
}

func containsFold(values []string, term string) bool {
	term = strings.ToLower(term)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func equalsFold(values []string, term string) bool {
	for _, v := range values {
		if strings.EqualFold(v, term) {
			return true
		}
	}
	return false
}
