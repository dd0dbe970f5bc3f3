// Package domain defines the core business entities for North.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An indexed document with construction metadata
//   - DocumentChunk: A searchable slice of a large document
//   - SourceItem: A file or folder as reported by the file source
//   - SyncState: Cursor and run history for incremental sync
//   - SearchEntities / SearchStrategy: Parsed query intent and how to execute it
//   - Company / WorkEntry: The structured contractor directory
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
