package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.Extractor = (*Registry)(nil)

// Registry dispatches extraction to the first extractor that supports
// the file's extension.
type Registry struct {
	extractors []driven.Extractor
}

// NewRegistry creates a registry over the given extractors, tried in
// order.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Supports reports whether any registered extractor handles the
// extension.
func (r *Registry) Supports(ext string) bool {
	for _, e := range r.extractors {
		if e.Supports(ext) {
			return true
		}
	}
	return false
}

// Extract runs the first matching extractor.
func (r *Registry) Extract(ctx context.Context, item domain.SourceItem, raw []byte) (*driven.ExtractResult, error) {
	ext := strings.ToLower(filepath.Ext(item.Name))
	for _, e := range r.extractors {
		if e.Supports(ext) {
			return e.Extract(ctx, item, raw)
		}
	}
	return nil, fmt.Errorf("%w: no extractor for %q", domain.ErrUnsupportedType, ext)
}
