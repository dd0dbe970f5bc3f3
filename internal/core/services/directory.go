package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
	"github.com/custodia-labs/north/internal/core/ports/driving"
	"github.com/custodia-labs/north/internal/logger"
)

// Ensure DirectoryService implements the interface.
var _ driving.DirectoryService = (*DirectoryService)(nil)

const (
	// defaultDirectoryMinScore drops weak retrieval matches. Never
	// applied to exhaustive listings.
	defaultDirectoryMinScore = 0.3

	// defaultDirectoryLimit caps top-k answers.
	defaultDirectoryLimit = 10

	// contactLimitFloor and contactLimitCeiling bound the result
	// budget for contact queries.
	contactLimitFloor   = 3
	contactLimitCeiling = 20

	// projectWorkLimit bounds the work-log retrieval for project queries.
	projectWorkLimit = 50

	// vocabTTL is how long the discovered tag and project vocabulary
	// is cached between directory questions.
	vocabTTL = 5 * time.Minute
)

// serviceSynonyms maps a service term to the variants that appear in
// directory tags. Matching is by substring, so only genuinely
// different words need listing.
var serviceSynonyms = map[string][]string{
	"glazing":    {"glazing", "glass", "window"},
	"glass":      {"glass", "glazing", "window"},
	"concrete":   {"concrete", "cement", "foundation"},
	"electrical": {"electrical", "electric"},
	"plumbing":   {"plumbing", "plumber"},
	"roofing":    {"roofing", "roof"},
	"drywall":    {"drywall", "sheetrock"},
	"hvac":       {"hvac", "heating", "cooling", "ventilation"},
}

// listAllPhrases trigger the exhaustive listing path.
var listAllPhrases = []string{
	"list all", "show all", "all suppliers", "all contractors",
	"all companies", "every supplier", "every contractor", "who provides",
}

// contactWords trigger the contact lookup path.
var contactWords = []string{"phone", "number", "email", "contact", "reach"}

// listSubjectPattern captures the service word preceding the listing
// subject ("glazing suppliers", "concrete contractors").
var listSubjectPattern = regexp.MustCompile(`(\w+)\s+(?:suppliers?|contractors?|companies)`)

// directoryVocab is the discovered tag and project vocabulary.
type directoryVocab struct {
	tags     []string
	projects []string
}

// DirectoryService answers questions about the contractor and
// supplier directory and the per-project work history. Questions are
// classified and routed to the cheapest resolution path that answers
// them completely; retrieval is only used when a deterministic scan
// cannot.
type DirectoryService struct {
	companies driven.Collection[domain.Company]
	worklog   driven.Collection[domain.WorkEntry]
	entities  driven.EntityService
	reranker  driven.Reranker
	vocab     *expirable.LRU[string, directoryVocab]
}

// DirectoryOption configures the directory service.
type DirectoryOption func(*DirectoryService)

// WithDirectoryEntityService sets the tag mapping service.
func WithDirectoryEntityService(s driven.EntityService) DirectoryOption {
	return func(d *DirectoryService) {
		d.entities = s
	}
}

// WithDirectoryReranker sets the reranking service.
func WithDirectoryReranker(r driven.Reranker) DirectoryOption {
	return func(d *DirectoryService) {
		d.reranker = r
	}
}

// NewDirectoryService creates a directory service over the backend's
// company and work-log collections.
func NewDirectoryService(backend driven.SearchBackend, opts ...DirectoryOption) *DirectoryService {
	d := &DirectoryService{
		companies: backend.Companies(),
		worklog:   backend.WorkLog(),
		vocab:     expirable.NewLRU[string, directoryVocab](2, nil, vocabTTL),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ask classifies the question and routes it.
func (d *DirectoryService) Ask(ctx context.Context, query string, opts driving.DirectoryOptions) (*domain.DirectoryAnswer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	lower := strings.ToLower(query)
	vocab := d.loadVocab(ctx)

	queryType, subject := classify(lower, vocab.projects)
	logger.Debug("directory query %q classified as %s", query, queryType)

	var (
		answer *domain.DirectoryAnswer
		err    error
	)
	switch queryType {
	case domain.QueryListAll:
		answer, err = d.listAll(ctx, subject)
	case domain.QueryFindByProject:
		answer, err = d.findByProject(ctx, query, subject)
	case domain.QueryGetContact:
		answer, err = d.getContact(ctx, query)
	default:
		answer, err = d.general(ctx, query, vocab.tags)
	}
	if err != nil {
		return nil, err
	}

	// Exhaustive answers are returned whole. Top-k answers get score
	// filtering, optional reranking and the result cap.
	if answer.Type != domain.QueryListAll {
		d.trim(ctx, query, answer, opts)
	}
	return answer, nil
}

// classify decides the resolution path. Order matters: listing
// phrases win over project mentions, which win over contact words.
func classify(lower string, projects []string) (domain.QueryType, string) {
	for _, phrase := range listAllPhrases {
		if strings.Contains(lower, phrase) {
			return domain.QueryListAll, listSubject(lower)
		}
	}

	for _, project := range projects {
		if mentionsProject(lower, project) {
			return domain.QueryFindByProject, project
		}
	}

	for _, word := range contactWords {
		if strings.Contains(lower, word) {
			return domain.QueryGetContact, ""
		}
	}

	return domain.QueryGeneral, ""
}

// listSubject extracts the service word from a listing question.
func listSubject(lower string) string {
	if m := listSubjectPattern.FindStringSubmatch(lower); m != nil {
		switch m[1] {
		case "all", "the", "every", "our":
			return ""
		default:
			return m[1]
		}
	}
	return ""
}

// mentionsProject checks whether a query refers to a known project,
// either by full name or by its first significant word.
func mentionsProject(lower, project string) bool {
	name := strings.ToLower(project)
	if strings.Contains(lower, name) {
		return true
	}
	first := strings.Fields(name)
	if len(first) > 0 && len(first[0]) >= 4 {
		return strings.Contains(lower, first[0])
	}
	return false
}

// listAll scans the whole directory for companies providing a
// service. The scan is deterministic and complete: no retrieval, no
// reranking, no score filter, no result cap. Hired companies sort
// first so known partners lead the answer.
func (d *DirectoryService) listAll(ctx context.Context, service string) (*domain.DirectoryAnswer, error) {
	hits, err := d.companies.Fetch(ctx, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}

	terms := expandService(service)

	var results []domain.DirectoryResult
	seen := make(map[string]bool)
	for _, hit := range hits {
		company := hit.Fields
		if seen[company.Name] {
			continue
		}
		matched := service == ""
		matchedTag := ""
		for _, term := range terms {
			if company.ProvidesService(term) {
				matched = true
				matchedTag = term
				break
			}
		}
		if !matched {
			continue
		}
		seen[company.Name] = true
		results = append(results, domain.DirectoryResult{
			Company:    company,
			MatchedTag: matchedTag,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Company.Hired != results[j].Company.Hired {
			return results[i].Company.Hired
		}
		return results[i].Company.Name < results[j].Company.Name
	})

	return &domain.DirectoryAnswer{
		Type:     domain.QueryListAll,
		Results:  results,
		Complete: true,
	}, nil
}

// findByProject retrieves the work log for a project and enriches
// each company with its directory entry. Companies in the work log
// without a directory entry are still reported, flagged as missing
// contact details, rather than silently dropped.
func (d *DirectoryService) findByProject(ctx context.Context, query, project string) (*domain.DirectoryAnswer, error) {
	filter := []domain.Filter{{
		Fields: []string{domain.FieldProject},
		Op:     domain.FilterEquals,
		Value:  project,
	}}

	hits, err := d.worklog.Hybrid(ctx, query, fallbackAlpha, filter, projectWorkLimit)
	if err != nil {
		return nil, fmt.Errorf("search work log: %w", err)
	}

	var results []domain.DirectoryResult
	seen := make(map[string]bool)
	for _, hit := range hits {
		work := hit.Fields
		if work.Company == "" || seen[work.Company] {
			continue
		}
		seen[work.Company] = true
		results = append(results, d.enrich(ctx, work, hit.Score))
	}

	return &domain.DirectoryAnswer{Type: domain.QueryFindByProject, Results: results}, nil
}

// getContact looks up contact details. The result budget scales with
// how many companies the question names.
func (d *DirectoryService) getContact(ctx context.Context, query string) (*domain.DirectoryAnswer, error) {
	limit := contactLimit(query)
	results, err := d.hybridBoth(ctx, query, 0.3, limit)
	if err != nil {
		return nil, err
	}
	return &domain.DirectoryAnswer{Type: domain.QueryGetContact, Results: results}, nil
}

// general answers everything else. When the model maps the query onto
// known tags, a cheap complete exact-tag scan answers it; otherwise
// hybrid retrieval over both collections.
func (d *DirectoryService) general(ctx context.Context, query string, knownTags []string) (*domain.DirectoryAnswer, error) {
	if d.entities != nil && len(knownTags) > 0 {
		tags, err := d.entities.MapToTags(ctx, query, knownTags)
		if err != nil {
			logger.Warn("tag mapping failed, falling back to retrieval: %v", err)
		} else if len(tags) > 0 {
			return d.byTags(ctx, tags)
		}
	}

	alpha := 0.3
	if looksLikeServiceQuery(query) {
		alpha = fallbackAlpha
	}
	results, err := d.hybridBoth(ctx, query, alpha, defaultDirectoryLimit)
	if err != nil {
		return nil, err
	}
	return &domain.DirectoryAnswer{Type: domain.QueryGeneral, Results: results}, nil
}

// byTags scans the work log for exact tag matches.
func (d *DirectoryService) byTags(ctx context.Context, tags []string) (*domain.DirectoryAnswer, error) {
	hits, err := d.worklog.Fetch(ctx, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("scan work log: %w", err)
	}

	var results []domain.DirectoryResult
	seen := make(map[string]bool)
	for _, hit := range hits {
		work := hit.Fields
		if seen[work.Company] {
			continue
		}
		for _, tag := range tags {
			if work.HasTag(tag) {
				seen[work.Company] = true
				result := d.enrich(ctx, work, 0)
				result.MatchedTag = tag
				results = append(results, result)
				break
			}
		}
	}

	return &domain.DirectoryAnswer{
		Type:     domain.QueryGeneral,
		Results:  results,
		Complete: true,
	}, nil
}

// hybridBoth searches companies and the work log, merging results by
// company name and keeping the higher score.
func (d *DirectoryService) hybridBoth(ctx context.Context, query string, alpha float64, limit int) ([]domain.DirectoryResult, error) {
	companyHits, err := d.companies.Hybrid(ctx, query, alpha, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("search directory: %w", err)
	}
	workHits, err := d.worklog.Hybrid(ctx, query, alpha, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("search work log: %w", err)
	}

	byName := make(map[string]*domain.DirectoryResult)
	var order []string

	for _, hit := range companyHits {
		name := hit.Fields.Name
		byName[name] = &domain.DirectoryResult{Company: hit.Fields, Score: hit.Score}
		order = append(order, name)
	}

	for _, hit := range workHits {
		work := hit.Fields
		if existing, ok := byName[work.Company]; ok {
			if existing.Work == nil {
				w := work
				existing.Work = &w
			}
			if hit.Score > existing.Score {
				existing.Score = hit.Score
			}
			continue
		}
		result := d.enrich(ctx, work, hit.Score)
		byName[work.Company] = &result
		order = append(order, work.Company)
	}

	results := make([]domain.DirectoryResult, 0, len(order))
	for _, name := range order {
		results = append(results, *byName[name])
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// enrich joins a work entry with its company's directory entry. A
// company missing from the directory is reported with the contact
// flag rather than dropped: partial information beats silence.
func (d *DirectoryService) enrich(ctx context.Context, work domain.WorkEntry, score float64) domain.DirectoryResult {
	w := work
	result := domain.DirectoryResult{Work: &w, Score: score}

	hits, err := d.companies.Fetch(ctx, []domain.Filter{{
		Fields: []string{domain.FieldCompany},
		Op:     domain.FilterEquals,
		Value:  work.Company,
	}}, 1)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("directory lookup for %q failed: %v", work.Company, err)
	}
	if len(hits) > 0 {
		result.Company = hits[0].Fields
	} else {
		result.Company = domain.Company{Name: work.Company}
		result.ContactUnavailable = true
	}
	return result
}

// trim applies the score filter, optional reranking and the result
// cap to a top-k answer.
func (d *DirectoryService) trim(ctx context.Context, query string, answer *domain.DirectoryAnswer, opts driving.DirectoryOptions) {
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = defaultDirectoryMinScore
	}
	limit := opts.MaxResults
	if limit <= 0 {
		limit = defaultDirectoryLimit
	}
	if answer.Type == domain.QueryGetContact {
		// Contact queries computed their own budget.
		limit = contactLimit(query)
	}

	// Complete tag scans have no scores to filter on.
	if !answer.Complete {
		kept := answer.Results[:0]
		for _, r := range answer.Results {
			if r.Score >= minScore || r.ContactUnavailable {
				kept = append(kept, r)
			}
		}
		answer.Results = kept
	}

	if d.reranker != nil && len(answer.Results) > 1 {
		d.rerankDirectory(ctx, query, answer, limit)
	}

	if len(answer.Results) > limit {
		answer.Results = answer.Results[:limit]
	}
}

func (d *DirectoryService) rerankDirectory(ctx context.Context, query string, answer *domain.DirectoryAnswer, limit int) {
	topN := 2 * limit
	if topN > len(answer.Results) {
		topN = len(answer.Results)
	}

	texts := make([]string, topN)
	for i := 0; i < topN; i++ {
		texts[i] = directoryText(answer.Results[i])
	}

	scores, err := d.reranker.Rerank(ctx, query, texts, topN)
	if err != nil {
		logger.Warn("directory reranking failed, keeping retrieval order: %v", err)
		return
	}

	reordered := make([]domain.DirectoryResult, 0, len(answer.Results))
	for _, rr := range scores {
		if rr.Index < 0 || rr.Index >= topN {
			continue
		}
		result := answer.Results[rr.Index]
		result.Score = rr.Score
		reordered = append(reordered, result)
	}
	reordered = append(reordered, answer.Results[topN:]...)
	answer.Results = reordered
}

// directoryText is the serialised form of a result handed to the
// reranker: the directory entry plus whatever work matched.
func directoryText(r domain.DirectoryResult) string {
	parts := []string{r.Company.Name}
	if len(r.Company.Services) > 0 {
		parts = append(parts, strings.Join(r.Company.Services, ", "))
	}
	if r.Company.Notes != "" {
		parts = append(parts, r.Company.Notes)
	}
	if r.Work != nil {
		if r.Work.Project != "" {
			parts = append(parts, r.Work.Project)
		}
		if len(r.Work.Scope) > 0 {
			parts = append(parts, strings.Join(r.Work.Scope, "; "))
		}
		if len(r.Work.Tags) > 0 {
			parts = append(parts, strings.Join(r.Work.Tags, ", "))
		}
	}
	return strings.Join(parts, "\n")
}

// loadVocab discovers the tag and project vocabulary from the work
// log, cached briefly between questions.
func (d *DirectoryService) loadVocab(ctx context.Context) directoryVocab {
	if cached, ok := d.vocab.Get("worklog"); ok {
		return cached
	}

	hits, err := d.worklog.Fetch(ctx, nil, 0)
	if err != nil {
		logger.Warn("vocabulary discovery failed: %v", err)
		return directoryVocab{}
	}

	tags := make(map[string]bool)
	projects := make(map[string]bool)
	for _, hit := range hits {
		for _, tag := range hit.Fields.Tags {
			tags[strings.ToLower(tag)] = true
		}
		if p := hit.Fields.Project; p != "" {
			projects[p] = true
		}
	}

	vocab := directoryVocab{
		tags:     sortedKeys(tags),
		projects: sortedKeys(projects),
	}
	d.vocab.Add("worklog", vocab)
	return vocab
}

// expandService returns the synonym set for a service term, always
// including the term itself.
func expandService(service string) []string {
	if service == "" {
		return nil
	}
	service = strings.ToLower(service)
	if synonyms, ok := serviceSynonyms[service]; ok {
		return synonyms
	}
	return []string{service}
}

// contactLimit scales the result budget with the number of companies
// the question names, clamped to a sensible band.
func contactLimit(query string) int {
	named := 1 + strings.Count(query, ",") + strings.Count(strings.ToLower(query), " and ") + strings.Count(query, " & ")
	limit := named + 2
	if limit < contactLimitFloor {
		limit = contactLimitFloor
	}
	if limit > contactLimitCeiling {
		limit = contactLimitCeiling
	}
	return limit
}

// looksLikeServiceQuery spots questions about capabilities rather
// than specific companies; those lean on the semantic leg.
func looksLikeServiceQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, word := range []string{"supplier", "contractor", "service", "provide", "install", "labor", "labour"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
