package driven

import (
	"context"

	"github.com/custodia-labs/north/internal/core/domain"
)

// VaultContents is everything a directory vault yielded.
type VaultContents struct {
	// Companies are the parsed company notes.
	Companies []domain.Company

	// WorkLog are the parsed work log notes.
	WorkLog []domain.WorkEntry

	// Skipped counts notes without a recognised type marker.
	Skipped int
}

// VaultLoader reads a folder of markdown notes with YAML frontmatter
// describing companies and the work they performed.
type VaultLoader interface {
	// Load parses every markdown note under dir, recursively.
	// Notes that fail to parse are skipped, not fatal.
	Load(ctx context.Context, dir string) (*VaultContents, error)
}
