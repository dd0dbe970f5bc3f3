package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
	"github.com/custodia-labs/north/internal/core/ports/driving"
	"github.com/custodia-labs/north/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchOrchestrator = (*SearchService)(nil)

const (
	// defaultMaxResults is the result cap when the caller gives none.
	defaultMaxResults = 10

	// docSearchLimit and chunkSearchLimit bound each strategy's legs.
	docSearchLimit   = 20
	chunkSearchLimit = 30

	// rerankCap bounds how many candidates go to the reranker.
	rerankCap = 20

	// refinedStrategyLimit bounds the refinement round: only the top
	// strategies of the refined ladder are tried.
	refinedStrategyLimit = 2

	// hintFetchLimit bounds the scan used to discover known project
	// and contractor names for the extraction prompt.
	hintFetchLimit = 500

	// hintTTL is how long discovered hints are cached.
	hintTTL = 5 * time.Minute
)

// followUpPattern spots conversational follow-ups that refer back to
// the previous query ("that invoice", "who did it").
var followUpPattern = regexp.MustCompile(`\b(that|it)\b`)

// SearchService turns natural language queries into ranked document
// results. Entity extraction and reranking are optional; without them
// the pipeline degrades to a single filterless hybrid search.
type SearchService struct {
	backend  driven.SearchBackend
	entities driven.EntityService
	reranker driven.Reranker
	builder  *StrategyBuilder
	hints    *expirable.LRU[string, driven.EntityHints]

	// Conversation context for follow-up queries.
	mu   sync.Mutex
	last domain.SearchEntities
}

// SearchServiceOption configures the search service.
type SearchServiceOption func(*SearchService)

// WithEntityService sets the entity extraction service.
func WithEntityService(s driven.EntityService) SearchServiceOption {
	return func(svc *SearchService) {
		svc.entities = s
	}
}

// WithReranker sets the reranking service.
func WithReranker(r driven.Reranker) SearchServiceOption {
	return func(svc *SearchService) {
		svc.reranker = r
	}
}

// NewSearchService creates a search service over the backend.
func NewSearchService(backend driven.SearchBackend, opts ...SearchServiceOption) *SearchService {
	svc := &SearchService{
		backend: backend,
		builder: NewStrategyBuilder(),
		hints:   expirable.NewLRU[string, driven.EntityHints](4, nil, hintTTL),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Search runs the full pipeline: entity extraction, strategy building,
// execution with fallback, fusion, ranking and optional reranking.
func (s *SearchService) Search(ctx context.Context, query string, opts driving.SearchOptions) (*driving.SearchResponse, error) {
	entities := s.extract(ctx, query)
	return s.search(ctx, query, entities, opts)
}

// SearchWithContext is Search with conversational carry-over: when the
// query refers back with "that" or "it", unset project and contractor
// are inherited from the previous turn.
func (s *SearchService) SearchWithContext(ctx context.Context, query string, opts driving.SearchOptions) (*driving.SearchResponse, error) {
	entities := s.extract(ctx, query)

	if followUpPattern.MatchString(strings.ToLower(query)) {
		s.mu.Lock()
		prev := s.last
		s.mu.Unlock()
		entities = entities.Inherit(prev)
	}

	return s.search(ctx, query, entities, opts)
}

func (s *SearchService) search(ctx context.Context, query string, entities domain.SearchEntities, opts driving.SearchOptions) (*driving.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	limit := opts.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	requestID := uuid.New().String()
	logger.Section("Search " + requestID)
	logger.Debug("query: %q entities: %+v", query, entities)

	response := &driving.SearchResponse{RequestID: requestID, Entities: entities}

	strategies := s.builder.Build(query, entities)
	hits := s.execute(ctx, strategies, response)

	// One bounded refinement round when everything came back empty.
	if len(hits) == 0 && s.entities != nil && !entities.IsEmpty() {
		refined, err := s.entities.Refine(ctx, query, entities)
		if err != nil {
			logger.Warn("refinement failed: %v", err)
		} else if !refined.IsEmpty() {
			logger.Debug("refined entities: %+v", refined)
			response.Refined = true
			ladder := s.builder.Build(query, refined)
			if len(ladder) > refinedStrategyLimit {
				ladder = ladder[:refinedStrategyLimit]
			}
			hits = s.execute(ctx, ladder, response)
		}
	}

	ranked := rank(dedupeByPath(hits), entities)

	if s.reranker != nil && len(ranked) > 1 {
		reranked, err := s.rerank(ctx, query, ranked, limit)
		if err != nil {
			logger.Warn("reranking failed, keeping retrieval order: %v", err)
		} else {
			ranked = reranked
			response.Reranked = true
		}
	}

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	response.Results = ranked

	s.remember(entities)
	return response, nil
}

// execute runs every strategy in order and accumulates their hits.
// Later, broader strategies still contribute documents the precise
// ones missed; path dedup keeps the earlier, more precise hit when
// strategies overlap. A failed strategy is skipped, never fatal.
func (s *SearchService) execute(ctx context.Context, strategies []domain.SearchStrategy, response *driving.SearchResponse) []domain.SearchHit {
	var all []domain.SearchHit
	for _, strategy := range strategies {
		response.StrategiesTried++
		logger.Debug("strategy %d: %s (%s)", response.StrategiesTried, strategy.Description, strategy.Kind)

		hits, err := s.executeStrategy(ctx, strategy)
		if err != nil {
			logger.Warn("strategy failed: %v", err)
			continue
		}
		if len(hits) > 0 {
			logger.Debug("strategy yielded %d results", len(hits))
			all = append(all, hits...)
		}
	}
	return all
}

// executeStrategy queries documents and chunks, then fuses the two
// result sets at document level.
func (s *SearchService) executeStrategy(ctx context.Context, strategy domain.SearchStrategy) ([]domain.SearchHit, error) {
	docHits, err := s.queryDocuments(ctx, strategy)
	if err != nil {
		return nil, fmt.Errorf("document query: %w", err)
	}
	chunkHits, err := s.queryChunks(ctx, strategy)
	if err != nil {
		return nil, fmt.Errorf("chunk query: %w", err)
	}
	return fuse(docHits, chunkHits), nil
}

func (s *SearchService) queryDocuments(ctx context.Context, strategy domain.SearchStrategy) ([]driven.Hit[domain.Document], error) {
	docs := s.backend.Documents()
	switch strategy.Kind {
	case domain.StrategyVector:
		return docs.Vector(ctx, strategy.Query, strategy.Filters, docSearchLimit)
	case domain.StrategyKeyword:
		return docs.Keyword(ctx, strategy.Query, strategy.Filters, docSearchLimit)
	case domain.StrategyFilterOnly:
		return docs.Fetch(ctx, strategy.Filters, docSearchLimit)
	default:
		return docs.Hybrid(ctx, strategy.Query, strategy.Alpha, strategy.Filters, docSearchLimit)
	}
}

func (s *SearchService) queryChunks(ctx context.Context, strategy domain.SearchStrategy) ([]driven.Hit[domain.DocumentChunk], error) {
	chunks := s.backend.Chunks()
	switch strategy.Kind {
	case domain.StrategyVector:
		return chunks.Vector(ctx, strategy.Query, strategy.Filters, chunkSearchLimit)
	case domain.StrategyKeyword:
		return chunks.Keyword(ctx, strategy.Query, strategy.Filters, chunkSearchLimit)
	case domain.StrategyFilterOnly:
		return chunks.Fetch(ctx, strategy.Filters, chunkSearchLimit)
	default:
		return chunks.Hybrid(ctx, strategy.Query, strategy.Alpha, strategy.Filters, chunkSearchLimit)
	}
}

// extract parses the query with the entity service, degrading to zero
// entities when the service is missing or fails.
func (s *SearchService) extract(ctx context.Context, query string) domain.SearchEntities {
	if s.entities == nil {
		return domain.SearchEntities{}
	}
	hints := s.discoverHints(ctx)
	entities, err := s.entities.Extract(ctx, query, hints)
	if err != nil {
		logger.Warn("entity extraction failed, using raw query: %v", err)
		return domain.SearchEntities{}
	}
	return entities
}

// discoverHints collects the distinct project and contractor names in
// the index so extraction can map informal names onto them. The scan
// is cached briefly; it only needs to be as fresh as the last sync.
func (s *SearchService) discoverHints(ctx context.Context) *driven.EntityHints {
	if cached, ok := s.hints.Get("index"); ok {
		return &cached
	}

	hits, err := s.backend.Documents().Fetch(ctx, nil, hintFetchLimit)
	if err != nil {
		logger.Warn("hint discovery failed: %v", err)
		return nil
	}

	projects := make(map[string]bool)
	contractors := make(map[string]bool)
	for _, hit := range hits {
		if p := hit.Fields.Project; p != "" {
			projects[p] = true
		}
		if c := hit.Fields.Contractor; c != "" {
			contractors[c] = true
		}
	}

	hints := driven.EntityHints{
		Projects:    sortedKeys(projects),
		Contractors: sortedKeys(contractors),
	}
	s.hints.Add("index", hints)
	return &hints
}

func (s *SearchService) rerank(ctx context.Context, query string, ranked []domain.RankedResult, limit int) ([]domain.RankedResult, error) {
	topN := 2 * limit
	if topN > rerankCap {
		topN = rerankCap
	}
	if topN > len(ranked) {
		topN = len(ranked)
	}

	texts := make([]string, topN)
	for i := 0; i < topN; i++ {
		texts[i] = rerankText(ranked[i].Document)
	}

	scores, err := s.reranker.Rerank(ctx, query, texts, topN)
	if err != nil {
		return nil, err
	}

	reordered := make([]domain.RankedResult, 0, len(ranked))
	for _, rr := range scores {
		if rr.Index < 0 || rr.Index >= topN {
			continue
		}
		result := ranked[rr.Index]
		result.Score = rr.Score
		reordered = append(reordered, result)
	}
	// Candidates beyond the reranked window keep their order.
	reordered = append(reordered, ranked[topN:]...)
	return reordered, nil
}

func (s *SearchService) remember(entities domain.SearchEntities) {
	if entities.IsEmpty() {
		return
	}
	s.mu.Lock()
	s.last = entities
	s.mu.Unlock()
}

// fuse folds chunk hits up into their parents and merges them with
// direct document hits. Parents hit both directly and through chunks
// keep the direct hit and the chunk match count; parents only hit
// through chunks are synthesised from their best chunk.
func fuse(docHits []driven.Hit[domain.Document], chunkHits []driven.Hit[domain.DocumentChunk]) []domain.SearchHit {
	type chunkGroup struct {
		best  driven.Hit[domain.DocumentChunk]
		count int
	}
	groups := make(map[string]*chunkGroup)
	for _, hit := range chunkHits {
		g, ok := groups[hit.Fields.ParentID]
		if !ok {
			groups[hit.Fields.ParentID] = &chunkGroup{best: hit, count: 1}
			continue
		}
		g.count++
		if hit.Score > g.best.Score {
			g.best = hit
		}
	}

	hits := make([]domain.SearchHit, 0, len(docHits)+len(groups))
	seen := make(map[string]bool, len(docHits))

	for _, hit := range docHits {
		seen[hit.Fields.SourceID] = true
		fused := domain.SearchHit{Document: hit.Fields, Score: hit.Score}
		if g, ok := groups[hit.Fields.SourceID]; ok {
			fused.MatchedChunks = g.count
			if g.best.Score > fused.Score {
				fused.Score = g.best.Score
			}
		}
		hits = append(hits, fused)
	}

	// Order the synthesised parents deterministically.
	parents := make([]string, 0, len(groups))
	for parent := range groups {
		if !seen[parent] {
			parents = append(parents, parent)
		}
	}
	sort.Strings(parents)

	for _, parent := range parents {
		g := groups[parent]
		chunk := g.best.Fields
		hits = append(hits, domain.SearchHit{
			Document: domain.Document{
				SourceID:     chunk.ParentID,
				Name:         chunk.ParentName,
				Path:         chunk.Path,
				Content:      chunk.Content,
				DocumentMeta: chunk.DocumentMeta,
			},
			Score:         g.best.Score,
			FromChunks:    true,
			MatchedChunks: g.count,
		})
	}

	return hits
}

// dedupeByPath keeps the first hit for each file path. Hits without a
// path are kept as-is.
func dedupeByPath(hits []domain.SearchHit) []domain.SearchHit {
	seen := make(map[string]bool, len(hits))
	deduped := hits[:0:0]
	for _, hit := range hits {
		path := hit.Document.Path
		if path != "" {
			if seen[path] {
				continue
			}
			seen[path] = true
		}
		deduped = append(deduped, hit)
	}
	return deduped
}

// rank orders hits by backend score, breaking ties with an entity
// match bonus: +3 project, +3 contractor, +2 doc type, +1 per keyword
// found anywhere in the serialised hit.
func rank(hits []domain.SearchHit, entities domain.SearchEntities) []domain.RankedResult {
	ranked := make([]domain.RankedResult, len(hits))
	for i, hit := range hits {
		ranked[i] = domain.RankedResult{
			SearchHit: hit,
			Bonus:     relevanceBonus(hit, entities),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Bonus > ranked[j].Bonus
	})
	return ranked
}

func relevanceBonus(hit domain.SearchHit, entities domain.SearchEntities) int {
	serialised := strings.ToLower(fmt.Sprintf("%v", hit.Document))

	bonus := 0
	if entities.Project != "" && strings.Contains(serialised, strings.ToLower(entities.Project)) {
		bonus += 3
	}
	if entities.Contractor != "" && strings.Contains(serialised, strings.ToLower(entities.Contractor)) {
		bonus += 3
	}
	if entities.DocType != "" && strings.Contains(serialised, strings.ToLower(entities.DocType)) {
		bonus += 2
	}
	for _, kw := range entities.Keywords {
		if strings.Contains(serialised, strings.ToLower(kw)) {
			bonus++
		}
	}
	return bonus
}

// rerankText is the document text handed to the reranker. Content is
// truncated so one oversized document doesn't blow the request.
func rerankText(doc domain.Document) string {
	const maxRerankChars = 2000
	text := doc.Name + "\n" + doc.Content
	if len(text) > maxRerankChars {
		text = text[:maxRerankChars]
	}
	return text
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
