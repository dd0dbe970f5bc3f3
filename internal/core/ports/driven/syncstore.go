package driven

import (
	"context"

	"github.com/custodia-labs/north/internal/core/domain"
)

// SyncStateStore persists sync progress.
type SyncStateStore interface {
	// Save stores or updates sync state.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for a watched folder.
	// Returns domain.ErrNotFound when no state exists yet.
	Get(ctx context.Context, path string) (*domain.SyncState, error)

	// Delete removes sync state for a watched folder.
	Delete(ctx context.Context, path string) error

	// Close releases resources.
	Close() error
}
