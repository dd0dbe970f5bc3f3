package domain

import "time"

// DocumentMeta holds the construction metadata extracted from a document.
// Fields are empty when extraction could not determine them.
type DocumentMeta struct {
	// Project is the construction project this document belongs to.
	Project string

	// Contractor is the contractor or subcontractor named in the document.
	Contractor string

	// Vendor is the supplier or vendor named in the document.
	Vendor string

	// DocType classifies the document (invoice, permit, contract, etc).
	DocType string

	// InvoiceNumber is the invoice identifier, for invoice documents.
	InvoiceNumber string

	// InvoiceAmount is the invoice total, zero when not an invoice.
	InvoiceAmount float64

	// InvoiceDate is the invoice date as written in the document.
	InvoiceDate string
}

// Document represents an indexed document with metadata.
// It is the canonical representation after text extraction.
type Document struct {
	// SourceID is the stable identifier assigned by the file source.
	// It survives renames and moves.
	SourceID string

	// Name is the file name including extension.
	Name string

	// Path is the full path within the watched folder.
	Path string

	// Content is the full extracted text before chunking.
	Content string

	// DocumentMeta is the extracted construction metadata.
	DocumentMeta

	// ContentHash is the SHA-256 of Content, used for duplicate detection.
	ContentHash string

	// Size is the file size in bytes at the source.
	Size int64

	// ModifiedAt is the file's modification time at the source.
	ModifiedAt time.Time

	// IndexedAt is when the document was last written to the index.
	IndexedAt time.Time

	// WordCount is the number of whitespace-separated words in Content.
	WordCount int
}

// DocumentChunk represents a searchable slice of a large document.
// Documents above the chunking threshold are split into chunks so
// that semantic search operates on focused passages.
type DocumentChunk struct {
	// ID is the unique identifier for the chunk.
	// Chunk IDs are derived from the parent and position, so re-indexing
	// the same document produces the same IDs.
	ID string

	// ParentID is the SourceID of the parent Document.
	ParentID string

	// ParentName is the parent's file name, carried for display.
	ParentName string

	// Path is the parent's path, carried for dedup by location.
	Path string

	// Index is the ordinal position within the document, from zero.
	Index int

	// Total is the number of chunks the parent was split into.
	Total int

	// Content is the text content of this chunk.
	Content string

	// DocumentMeta is copied from the parent so chunk hits can be
	// filtered the same way document hits are.
	DocumentMeta

	// IndexedAt is when the chunk was written to the index.
	IndexedAt time.Time
}
