package driven

import "context"

// RerankResult is one document's position after reranking.
type RerankResult struct {
	// Index is the document's position in the input slice.
	Index int

	// Score is the reranker's relevance score, higher is better.
	Score float64
}

// Reranker reorders candidate documents by relevance to a query using
// a cross-encoder model.
// This is an optional service - when nil, results keep retrieval order.
type Reranker interface {
	// Rerank scores the documents against the query and returns the
	// top-k results, best first.
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error)

	// ModelName returns the name of the reranking model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
