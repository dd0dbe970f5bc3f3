package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
	"github.com/custodia-labs/north/internal/core/ports/driving"
	"github.com/custodia-labs/north/internal/logger"
)

// Ensure SyncEngine implements the interface.
var _ driving.SyncRunner = (*SyncEngine)(nil)

// indexableExtensions are the file types the pipeline can extract.
var indexableExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".csv":  true,
	".doc":  true,
	".docx": true,
}

// SyncEngine coordinates synchronisation of the watched folder into
// the index. One sync runs at a time; concurrent calls get
// domain.ErrSyncInProgress.
type SyncEngine struct {
	source    driven.FileSource
	extractor driven.Extractor
	writer    *IndexWriter
	syncStore driven.SyncStateStore
	path      string
	now       func() time.Time

	mu      sync.RWMutex
	running bool
	status  driving.SyncStatus
}

// SyncEngineOption configures the sync engine.
type SyncEngineOption func(*SyncEngine)

// WithSyncClock replaces the time source. Useful for testing.
func WithSyncClock(now func() time.Time) SyncEngineOption {
	return func(e *SyncEngine) {
		e.now = now
	}
}

// NewSyncEngine creates a sync engine for the watched folder path.
func NewSyncEngine(
	source driven.FileSource,
	extractor driven.Extractor,
	writer *IndexWriter,
	syncStore driven.SyncStateStore,
	path string,
	opts ...SyncEngineOption,
) *SyncEngine {
	e := &SyncEngine{
		source:    source,
		extractor: extractor,
		writer:    writer,
		syncStore: syncStore,
		path:      path,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunDaily runs the scheduled sync. Full when no usable state exists
// or the cursor is stale, incremental otherwise. An expired cursor
// falls back to a full sync automatically.
func (e *SyncEngine) RunDaily(ctx context.Context) (*domain.SyncRun, error) {
	state, err := e.loadState(ctx)
	if err != nil {
		return nil, err
	}

	if state.NeedsFullSync(e.now()) {
		logger.Info("No usable cursor for %s, running full sync", e.path)
		return e.FullSync(ctx)
	}

	run, err := e.incrementalSync(ctx, *state)
	if errors.Is(err, domain.ErrCursorExpired) {
		logger.Warn("Cursor expired for %s, falling back to full sync", e.path)
		return e.FullSync(ctx)
	}
	return run, err
}

// FullSync forces a complete resync regardless of state.
func (e *SyncEngine) FullSync(ctx context.Context) (*domain.SyncRun, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	runID := uuid.New().String()
	logger.Info("Starting full sync %s for %s", runID, e.path)

	run := domain.SyncRun{ID: runID, StartedAt: e.now(), Full: true}

	if err := e.source.Validate(ctx); err != nil {
		return e.finishRun(ctx, run, "", fmt.Errorf("%w: %w", domain.ErrSourceValidation, err))
	}

	items, errs := e.source.FullSync(ctx)
	cursor, err := e.consumeItems(ctx, items, errs, &run)
	return e.finishRun(ctx, run, cursor, err)
}

// incrementalSync applies the change feed since the state's cursor.
func (e *SyncEngine) incrementalSync(ctx context.Context, state domain.SyncState) (*domain.SyncRun, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	runID := uuid.New().String()
	logger.Info("Starting incremental sync %s for %s", runID, e.path)

	run := domain.SyncRun{ID: runID, StartedAt: e.now()}

	changes, errs := e.source.IncrementalSync(ctx, state)
	cursor, err := e.consumeChanges(ctx, changes, errs, &run)
	if errors.Is(err, domain.ErrCursorExpired) {
		// Structural, not transient: surface to RunDaily so it can
		// fall back to a full sync. Nothing to record.
		return nil, domain.ErrCursorExpired
	}
	return e.finishRun(ctx, run, cursor, err)
}

// Status returns the current sync status.
func (e *SyncEngine) Status(ctx context.Context) (*driving.SyncStatus, error) {
	e.mu.RLock()
	if e.running {
		status := e.status
		e.mu.RUnlock()
		return &status, nil
	}
	e.mu.RUnlock()

	state, err := e.syncStore.Get(ctx, e.path)
	if errors.Is(err, domain.ErrNotFound) {
		return &driving.SyncStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}

	status := &driving.SyncStatus{
		Cursor:       state.Cursor,
		RunsRecorded: len(state.History),
	}
	if !state.LastSync.IsZero() {
		status.LastSync = state.LastSync.Format(time.RFC3339)
	}
	if n := len(state.History); n > 0 {
		last := state.History[n-1]
		status.LastRun = &last
	}
	return status, nil
}

// consumeItems drains a full sync feed.
// Returns the new cursor from SyncComplete if the source provides one.
func (e *SyncEngine) consumeItems(
	ctx context.Context,
	items <-chan domain.SourceItem,
	errs <-chan error,
	run *domain.SyncRun,
) (string, error) {
	var newCursor string

	// Drain both channels fully so a trailing SyncComplete or error is
	// never lost to select ordering.
	for items != nil || errs != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			// Check if this is a SyncComplete (successful completion with cursor)
			if sc, isSyncComplete := driven.IsSyncComplete(err); isSyncComplete {
				newCursor = sc.NewCursor
				continue
			}
			if err != nil {
				return "", fmt.Errorf("source error: %w", err)
			}

		case item, ok := <-items:
			if !ok {
				items = nil
				continue
			}

			run.Processed++
			if !e.indexable(item) {
				run.Skipped++
				continue
			}

			logger.Debug("Processing: %s", item.Path)
			if err := e.processItem(ctx, item); err != nil {
				run.Failed++
				logger.Debug("Failed to process %s: %v", item.Path, err)
				continue
			}
			run.Indexed++
			run.Added++
		}
	}

	return newCursor, nil
}

// consumeChanges drains an incremental change feed.
// Returns the new cursor from SyncComplete if the source provides one.
func (e *SyncEngine) consumeChanges(
	ctx context.Context,
	changes <-chan domain.ItemChange,
	errs <-chan error,
	run *domain.SyncRun,
) (string, error) {
	var newCursor string

	for changes != nil || errs != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if sc, isSyncComplete := driven.IsSyncComplete(err); isSyncComplete {
				newCursor = sc.NewCursor
				continue
			}
			if errors.Is(err, domain.ErrCursorExpired) {
				return "", domain.ErrCursorExpired
			}
			if err != nil {
				return "", fmt.Errorf("source error: %w", err)
			}

		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}

			run.Processed++

			switch change.Kind {
			case domain.ChangeDeleted:
				logger.Debug("Deleting: %s", change.Item.Path)
				if err := e.deleteItem(ctx, change.Item); err != nil {
					run.Failed++
					logger.Debug("Failed to delete %s: %v", change.Item.Path, err)
					continue
				}
				run.Deleted++

			case domain.ChangeUpserted:
				if !e.indexable(change.Item) {
					run.Skipped++
					continue
				}

				existed, err := e.writer.Exists(ctx, change.Item.ID)
				if err != nil {
					run.Failed++
					logger.Debug("Failed to check %s: %v", change.Item.Path, err)
					continue
				}

				logger.Debug("Processing: %s", change.Item.Path)
				if err := e.processItem(ctx, change.Item); err != nil {
					run.Failed++
					logger.Debug("Failed to process %s: %v", change.Item.Path, err)
					continue
				}
				run.Indexed++
				if existed {
					run.Modified++
				} else {
					run.Added++
				}
			}
		}
	}

	return newCursor, nil
}

// processItem downloads, extracts and indexes one file.
func (e *SyncEngine) processItem(ctx context.Context, item domain.SourceItem) error {
	raw, err := e.source.Download(ctx, item.Path)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	result, err := e.extractor.Extract(ctx, item, raw)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	doc := domain.Document{
		SourceID:     item.ID,
		Name:         item.Name,
		Path:         item.Path,
		Content:      result.Text,
		DocumentMeta: result.Meta,
		Size:         item.Size,
		ModifiedAt:   item.ModifiedAt,
	}

	if err := e.writer.Index(ctx, doc); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}

// deleteItem removes a deleted item from the index. Change feeds drop
// the identifier on deletion, so the path is the fallback key.
func (e *SyncEngine) deleteItem(ctx context.Context, item domain.SourceItem) error {
	if item.ID != "" {
		return e.writer.Delete(ctx, item.ID)
	}
	_, err := e.writer.DeleteByPath(ctx, item.Path)
	return err
}

// indexable reports whether an item should be indexed: files only,
// with a supported extension.
func (e *SyncEngine) indexable(item domain.SourceItem) bool {
	if item.Type != domain.ItemFile {
		return false
	}
	ext := strings.ToLower(filepath.Ext(item.Name))
	if !indexableExtensions[ext] {
		return false
	}
	return e.extractor.Supports(ext)
}

// finishRun stamps the run, persists state and returns the outcome.
// Item failures are already counted in the run; err here means the
// run itself aborted, in which case state is left untouched so the
// next attempt resumes from the previous cursor.
func (e *SyncEngine) finishRun(ctx context.Context, run domain.SyncRun, cursor string, err error) (*domain.SyncRun, error) {
	run.CompletedAt = e.now()

	if err != nil {
		run.Error = err.Error()
		return &run, err
	}

	state, loadErr := e.loadState(ctx)
	if loadErr != nil {
		return &run, loadErr
	}
	if cursor != "" {
		state.Cursor = cursor
	}
	state.LastSync = run.CompletedAt
	state.RecordRun(run, run.CompletedAt)

	if saveErr := e.syncStore.Save(ctx, *state); saveErr != nil {
		return &run, fmt.Errorf("save sync state: %w", saveErr)
	}

	logger.Info("Sync complete: %d indexed, %d deleted, %d skipped, %d failed",
		run.Indexed, run.Deleted, run.Skipped, run.Failed)
	return &run, nil
}

// loadState fetches the state for the watched folder, returning a
// fresh zero state when none exists yet.
func (e *SyncEngine) loadState(ctx context.Context) (*domain.SyncState, error) {
	state, err := e.syncStore.Get(ctx, e.path)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.SyncState{Path: e.path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	return state, nil
}

func (e *SyncEngine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return domain.ErrSyncInProgress
	}
	e.running = true
	e.status = driving.SyncStatus{Running: true}
	return nil
}

func (e *SyncEngine) end() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}
