// Package dropbox implements the file source port over the Dropbox
// API. Full listings walk the folder recursively; incremental sync
// follows the cursor returned by the previous run. All requests go
// through a token bucket rate limiter.
package dropbox
