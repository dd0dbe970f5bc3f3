package domain

import "time"

// HistoryRetention is how long completed sync runs are kept in history.
const HistoryRetention = 30 * 24 * time.Hour

// StaleSyncThreshold is how long a cursor is trusted. When the last
// successful sync is older than this, a full resync is forced instead
// of trusting the cursor.
const StaleSyncThreshold = 30 * 24 * time.Hour

// SyncRun records the outcome of one sync pass.
type SyncRun struct {
	// ID identifies the run, for correlating logs with history.
	ID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// CompletedAt is when the run finished, successfully or not.
	CompletedAt time.Time

	// Full is true for full syncs, false for incremental.
	Full bool

	// Processed is the number of items seen, including skips.
	Processed int

	// Indexed is the number of documents written to the index.
	Indexed int

	// Added and Modified split Indexed for incremental runs.
	Added    int
	Modified int

	// Deleted is the number of documents removed from the index.
	Deleted int

	// Skipped is the number of items ignored (folders, unsupported types).
	Skipped int

	// Failed is the number of items that could not be processed.
	// Item failures never abort a run; they are counted here.
	Failed int

	// Error is set when the run itself aborted.
	Error string
}

// SyncState tracks the synchronisation progress for the watched folder.
type SyncState struct {
	// Path is the watched folder this state belongs to.
	Path string

	// Cursor is an opaque token for incremental sync.
	Cursor string

	// LastSync is when the last successful sync completed.
	LastSync time.Time

	// History holds recent sync runs, oldest first.
	History []SyncRun
}

// RecordRun appends a completed run and drops history older than
// HistoryRetention. Runs with a zero CompletedAt are kept.
func (s *SyncState) RecordRun(run SyncRun, now time.Time) {
	s.History = append(s.History, run)
	cutoff := now.Add(-HistoryRetention)
	kept := s.History[:0]
	for _, r := range s.History {
		if r.CompletedAt.IsZero() || r.CompletedAt.After(cutoff) {
			kept = append(kept, r)
		}
	}
	s.History = kept
}

// NeedsFullSync reports whether the state requires a full sync:
// either no successful sync has happened yet, or the cursor is
// older than StaleSyncThreshold.
func (s *SyncState) NeedsFullSync(now time.Time) bool {
	if s == nil || s.Cursor == "" || s.LastSync.IsZero() {
		return true
	}
	return now.Sub(s.LastSync) > StaleSyncThreshold
}
