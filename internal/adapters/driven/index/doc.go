// Package index implements the search backend over a Bleve keyword
// index and an HNSW vector graph per collection. Keyword and vector
// legs are blended with relative scoring; when no embedding service is
// configured every semantic operation degrades to keyword matching.
package index
