package driving

import (
	"context"

	"github.com/custodia-labs/north/internal/core/domain"
)

// SyncRunner coordinates synchronisation of the watched folder.
type SyncRunner interface {
	// RunDaily runs the scheduled sync: full when no usable state
	// exists or the cursor is stale, incremental otherwise. An
	// expired cursor falls back to a full sync automatically.
	RunDaily(ctx context.Context) (*domain.SyncRun, error)

	// FullSync forces a complete resync regardless of state.
	FullSync(ctx context.Context) (*domain.SyncRun, error)

	// Status returns the current sync status.
	Status(ctx context.Context) (*SyncStatus, error)
}

// SyncStatus represents the current state of synchronisation.
type SyncStatus struct {
	// Running indicates if a sync is currently in progress.
	Running bool

	// Cursor is the current incremental sync cursor, empty if none.
	Cursor string

	// LastSync is when the last successful sync completed.
	LastSync string

	// LastRun is the most recent completed run, nil if none.
	LastRun *domain.SyncRun

	// RunsRecorded is the number of runs in the retained history.
	RunsRecorded int
}
