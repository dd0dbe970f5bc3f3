// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - FileSource: Fetches files and change feeds from cloud storage
//   - Extractor: Turns raw file bytes into text and metadata
//   - SearchBackend: The typed collections of the hybrid index
//   - SyncStateStore: Sync progress persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EntityService: LLM entity extraction. Without it, searches fall
//     back to a single filterless hybrid strategy.
//   - EmbeddingService: Generates vector embeddings. Without it,
//     vector and hybrid search degrade to keyword only.
//   - Reranker: Cross-encoder reranking. Without it, results keep
//     their retrieval order.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
