package driving

import (
	"context"

	"github.com/custodia-labs/north/internal/core/domain"
)

// DirectoryOptions configures a directory question.
type DirectoryOptions struct {
	// MinScore drops low-relevance results. Not applied to
	// exhaustive listings. Zero means the default.
	MinScore float64

	// MaxResults caps the returned results. Not applied to
	// exhaustive listings. Zero means the default.
	MaxResults int
}

// DirectoryService answers questions about the contractor and
// supplier directory and the per-project work history.
type DirectoryService interface {
	// Ask classifies the question and routes it to the cheapest
	// resolution path that answers it completely.
	Ask(ctx context.Context, query string, opts DirectoryOptions) (*domain.DirectoryAnswer, error)
}
