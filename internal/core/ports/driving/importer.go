package driving

import "context"

// ImportReport summarises one vault import.
type ImportReport struct {
	// Companies is how many directory entries were written.
	Companies int

	// WorkEntries is how many work log entries were written.
	WorkEntries int

	// Skipped counts notes that carried no recognised type.
	Skipped int
}

// DirectoryImporter loads a vault of markdown notes into the
// contractor directory and work log.
type DirectoryImporter interface {
	// Import reads the vault at dir and upserts its contents.
	// Re-importing the same vault overwrites rather than duplicates.
	Import(ctx context.Context, dir string) (*ImportReport, error)
}
