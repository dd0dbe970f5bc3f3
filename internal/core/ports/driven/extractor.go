package driven

import (
	"context"

	"github.com/custodia-labs/north/internal/core/domain"
)

// ExtractResult is the outcome of extracting one file.
type ExtractResult struct {
	// Text is the extracted plain text.
	Text string

	// Meta is the construction metadata the extractor recognised.
	// Fields the extractor cannot determine are left empty.
	Meta domain.DocumentMeta
}

// Extractor turns raw file bytes into text and metadata.
// Implementations are selected by file extension.
type Extractor interface {
	// Supports reports whether the extractor handles the extension.
	// Extensions include the leading dot, lowercase (".pdf").
	Supports(ext string) bool

	// Extract produces text and metadata from raw bytes.
	// Returns domain.ErrUnsupportedType for files it cannot handle.
	Extract(ctx context.Context, item domain.SourceItem, raw []byte) (*ExtractResult, error)
}
