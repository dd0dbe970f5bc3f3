package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/coder/hnsw"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
)

// embedCap bounds how much text is sent to the embedding service for
// one record.
const embedCap = 8000

// projection flattens a record into filterable fields and the text
// that gets indexed and embedded.
type projection[T any] func(T) (fields map[string]string, text string)

// indexedDoc is the shape stored in Bleve.
type indexedDoc struct {
	Text string `json:"text"`
}

// Collection stores one record type across three aligned structures:
// the records themselves, a Bleve index for keyword matching and an
// HNSW graph for vector similarity. With a directory path the state
// survives restarts: Bleve runs on disk and the records and graph are
// saved on close; with an empty path everything lives in memory.
type Collection[T any] struct {
	mu       sync.RWMutex
	keyword  bleve.Index
	graph    *hnsw.Graph[uint64]
	embedder driven.EmbeddingService
	project  projection[T]
	path     string

	records map[string]T

	// String ID to graph key mapping. Vector removal is lazy: the
	// node stays in the graph, losing its mapping hides it from
	// results.
	idKeys  map[string]uint64
	keyIDs  map[uint64]string
	nextKey uint64
}

func newCollection[T any](embedder driven.EmbeddingService, project projection[T], path string) (*Collection[T], error) {
	keyword, err := openKeywordIndex(path)
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance

	c := &Collection[T]{
		keyword:  keyword,
		graph:    graph,
		embedder: embedder,
		project:  project,
		path:     path,
		records:  make(map[string]T),
		idKeys:   make(map[string]uint64),
		keyIDs:   make(map[uint64]string),
	}

	if path != "" {
		if err := c.load(); err != nil {
			keyword.Close()
			return nil, err
		}
	}
	return c, nil
}

// openKeywordIndex opens the on-disk Bleve index under dir, creating
// it on first run. An empty dir gives a memory-only index.
func openKeywordIndex(dir string) (bleve.Index, error) {
	if dir == "" {
		return bleve.NewMemOnly(bleve.NewIndexMapping())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, keywordIndexName)
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, bleve.NewIndexMapping())
	}
	return idx, err
}

// Upsert inserts or replaces the record with the given ID.
func (c *Collection[T]) Upsert(ctx context.Context, id string, record T) error {
	if id == "" {
		return fmt.Errorf("%w: empty record ID", domain.ErrInvalidInput)
	}

	_, text := c.project(record)

	var vector []float32
	if c.embedder != nil {
		embedText := text
		if len(embedText) > embedCap {
			embedText = embedText[:embedCap]
		}
		var err error
		vector, err = c.embedder.Embed(ctx, embedText)
		if err != nil {
			return fmt.Errorf("embed record %s: %w", id, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.keyword.Index(id, indexedDoc{Text: text}); err != nil {
		return fmt.Errorf("index record %s: %w", id, err)
	}

	if vector != nil {
		if key, ok := c.idKeys[id]; ok {
			delete(c.keyIDs, key)
			delete(c.idKeys, id)
		}
		key := c.nextKey
		c.nextKey++
		c.graph.Add(hnsw.MakeNode(key, normalise(vector)))
		c.idKeys[id] = key
		c.keyIDs[key] = id
	}

	c.records[id] = record
	return nil
}

// Delete removes the record. Deleting an absent ID is not an error.
func (c *Collection[T]) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[id]; !ok {
		return nil
	}
	if err := c.keyword.Delete(id); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if key, ok := c.idKeys[id]; ok {
		delete(c.keyIDs, key)
		delete(c.idKeys, id)
	}
	delete(c.records, id)
	return nil
}

// Get fetches a record by ID.
func (c *Collection[T]) Get(_ context.Context, id string) (*driven.Hit[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record, ok := c.records[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	return &driven.Hit[T]{ID: id, Fields: record}, nil
}

// Keyword runs BM25 term matching over the indexed text.
func (c *Collection[T]) Keyword(ctx context.Context, query string, filters []domain.Filter, limit int) ([]driven.Hit[T], error) {
	hits, err := c.keywordLeg(ctx, query, filters, limit)
	if err != nil {
		return nil, err
	}
	return capHits(hits, limit), nil
}

// Vector runs semantic similarity search, degrading to Keyword when no
// embedding service is configured.
func (c *Collection[T]) Vector(ctx context.Context, query string, filters []domain.Filter, limit int) ([]driven.Hit[T], error) {
	if c.embedder == nil {
		return c.Keyword(ctx, query, filters, limit)
	}
	hits, err := c.vectorLeg(ctx, query, filters, limit)
	if err != nil {
		return nil, err
	}
	return capHits(hits, limit), nil
}

// Hybrid blends the keyword and vector legs. Each leg's scores are
// normalised relative to its own best hit before weighting, so the two
// scales can be combined.
func (c *Collection[T]) Hybrid(ctx context.Context, query string, alpha float64, filters []domain.Filter, limit int) ([]driven.Hit[T], error) {
	if c.embedder == nil {
		return c.Keyword(ctx, query, filters, limit)
	}

	var (
		keywordHits []driven.Hit[T]
		vectorHits  []driven.Hit[T]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		keywordHits, err = c.keywordLeg(gctx, query, filters, limit)
		return err
	})
	g.Go(func() error {
		var err error
		vectorHits, err = c.vectorLeg(gctx, query, filters, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return capHits(blend(keywordHits, vectorHits, alpha), limit), nil
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
		fields, _ := c.project(record)
		if !matchesFilters(fields, filters) {
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

// close persists the collection when it is disk-backed, then releases
// the keyword index.
func (c *Collection[T]) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path != "" {
		if err := c.save(); err != nil {
			c.keyword.Close()
			return err
		}
	}
	return c.keyword.Close()
}

// keywordLeg queries Bleve and resolves hits back to records. The
// request is widened when filters apply, since filtering happens after
// retrieval.
func (c *Collection[T]) keywordLeg(ctx context.Context, query string, filters []domain.Filter, limit int) ([]driven.Hit[T], error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	size := limit
	if len(filters) > 0 {
		size = limit * 4
	}

	match := bleve.NewMatchQuery(query)
	match.SetField("text")
	request := bleve.NewSearchRequest(match)
	request.Size = size

	c.mu.RLock()
	result, err := c.keyword.SearchInContext(ctx, request)
	c.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	hits := make([]driven.Hit[T], 0, len(result.Hits))
	for _, hit := range result.Hits {
		record, ok := c.records[hit.ID]
		if !ok {
			continue
		}
		fields, _ := c.project(record)
		if !matchesFilters(fields, filters) {
			continue
		}
		hits = append(hits, driven.Hit[T]{ID: hit.ID, Score: hit.Score, Fields: record})
	}
	return hits, nil
}

// vectorLeg embeds the query and walks the graph. The neighbourhood is
// oversized to survive filtering and lazily deleted nodes.
func (c *Collection[T]) vectorLeg(ctx context.Context, query string, filters []domain.Filter, limit int) ([]driven.Hit[T], error) {
	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vector = normalise(vector)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.graph.Len() == 0 {
		return nil, nil
	}

	k := limit * 2
	if k < 10 {
		k = 10
	}
	nodes := c.graph.Search(vector, k)

	hits := make([]driven.Hit[T], 0, len(nodes))
	for _, node := range nodes {
		id, ok := c.keyIDs[node.Key]
		if !ok {
			// Lazily deleted node.
			continue
		}
		record := c.records[id]
		fields, _ := c.project(record)
		if !matchesFilters(fields, filters) {
			continue
		}
		distance := c.graph.Distance(vector, node.Value)
		hits = append(hits, driven.Hit[T]{
			ID: id,
			// Cosine distance runs 0 to 2; fold it onto 0 to 1.
			Score:  1 - float64(distance)/2,
			Fields: record,
		})
	}
	return hits, nil
}

// blend merges the two legs, normalising each against its own best
// score. Alpha weights the vector leg.
func blend[T any](keywordHits, vectorHits []driven.Hit[T], alpha float64) []driven.Hit[T] {
	keywordMax := maxScore(keywordHits)
	vectorMax := maxScore(vectorHits)

	type entry struct {
		hit   driven.Hit[T]
		score float64
	}
	merged := make(map[string]*entry, len(keywordHits)+len(vectorHits))

	for _, hit := range keywordHits {
		merged[hit.ID] = &entry{hit: hit, score: (1 - alpha) * hit.Score / keywordMax}
	}
	for _, hit := range vectorHits {
		weighted := alpha * hit.Score / vectorMax
		if e, ok := merged[hit.ID]; ok {
			e.score += weighted
			continue
		}
		merged[hit.ID] = &entry{hit: hit, score: weighted}
	}

	hits := make([]driven.Hit[T], 0, len(merged))
	for _, e := range merged {
		e.hit.Score = e.score
		hits = append(hits, e.hit)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	return hits
}

func maxScore[T any](hits []driven.Hit[T]) float64 {
	max := 0.0
	for _, hit := range hits {
		if hit.Score > max {
			max = hit.Score
		}
	}
	if max == 0 {
		return 1
	}
	return max
}

func capHits[T any](hits []driven.Hit[T], limit int) []driven.Hit[T] {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}

// matchesFilters reports whether a record's fields satisfy every
// filter. Within one filter any named field may match; the filters
// themselves are ANDed.
func matchesFilters(fields map[string]string, filters []domain.Filter) bool {
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

// normalise scales a vector to unit length so cosine distances are
// well defined.
func normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
