package driven

import (
	"context"
	"errors"

	"github.com/custodia-labs/north/internal/core/domain"
)

// FileSource fetches files and change feeds from a cloud storage folder.
type FileSource interface {
	// Type returns the source type identifier (e.g. "dropbox").
	Type() string

	// Validate checks if the source is properly configured and
	// authenticated. Performs a lightweight API call.
	// Returns nil if ready to sync, error describing the problem otherwise.
	Validate(ctx context.Context) error

	// FullSync lists every item under the watched folder.
	// Returns channels for items and errors. On successful completion
	// a SyncComplete carrying the new cursor is sent on the error channel.
	FullSync(ctx context.Context) (<-chan domain.SourceItem, <-chan error)

	// IncrementalSync fetches only changes since the state's cursor.
	// On successful completion a SyncComplete carrying the new cursor
	// is sent on the error channel. When the source has invalidated
	// the cursor, domain.ErrCursorExpired is sent instead and the
	// caller must fall back to a full sync.
	IncrementalSync(ctx context.Context, state domain.SyncState) (<-chan domain.ItemChange, <-chan error)

	// Download fetches the raw bytes of a file by path.
	Download(ctx context.Context, path string) ([]byte, error)

	// Close releases resources.
	Close() error
}

// SyncComplete is sent on the error channel when sync completes successfully.
// Carries the new cursor state for incremental sync.
type SyncComplete struct {
	NewCursor string
}

// Error implements the error interface.
// This allows SyncComplete to be sent on the error channel.
func (SyncComplete) Error() string {
	return "sync complete"
}

// IsSyncComplete checks if an error is actually a successful completion.
// Returns the SyncComplete and true if it is, nil and false otherwise.
func IsSyncComplete(err error) (*SyncComplete, bool) {
	var sc *SyncComplete
	if errors.As(err, &sc) {
		return sc, true
	}
	return nil, false
}
