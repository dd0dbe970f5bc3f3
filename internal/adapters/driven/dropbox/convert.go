package dropbox

import (
	"errors"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/auth"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"

	"github.com/custodia-labs/north/internal/core/domain"
)

// entryToItem converts a listing entry to a source item. The second
// return is false for entry types the sync pipeline does not track.
func entryToItem(entry files.IsMetadata) (domain.SourceItem, bool) {
	switch md := entry.(type) {
	case *files.FileMetadata:
		return domain.SourceItem{
			ID:          md.Id,
			Name:        md.Name,
			Path:        md.PathDisplay,
			Type:        domain.ItemFile,
			Size:        int64(md.Size),
			ModifiedAt:  md.ServerModified,
			Rev:         md.Rev,
			ContentHash: md.ContentHash,
		}, true
	case *files.FolderMetadata:
		return domain.SourceItem{
			ID:   md.Id,
			Name: md.Name,
			Path: md.PathDisplay,
			Type: domain.ItemFolder,
		}, true
	default:
		return domain.SourceItem{}, false
	}
}

// entryToChange converts a change feed entry. Deleted entries carry
// only name and path; Dropbox drops the identifier on deletion.
func entryToChange(entry files.IsMetadata) (domain.ItemChange, bool) {
	if md, ok := entry.(*files.DeletedMetadata); ok {
		return domain.ItemChange{
			Kind: domain.ChangeDeleted,
			Item: domain.SourceItem{
				Name: md.Name,
				Path: md.PathDisplay,
			},
		}, true
	}

	item, ok := entryToItem(entry)
	if !ok {
		return domain.ItemChange{}, false
	}
	return domain.ItemChange{Kind: domain.ChangeUpserted, Item: item}, true
}

// isRateLimited reports whether the API answered 429, and how long it
// asked us to wait. A zero duration means no Retry-After was given.
func isRateLimited(err error) (time.Duration, bool) {
	var rateErr auth.RateLimitAPIError
	if !errors.As(err, &rateErr) {
		return 0, false
	}
	var retryAfter time.Duration
	if rateErr.RateLimitError != nil {
		retryAfter = time.Duration(rateErr.RateLimitError.RetryAfter) * time.Second
	}
	return retryAfter, true
}

// isCursorReset reports whether the API rejected the cursor as
// invalidated, which forces a full resync.
func isCursorReset(err error) bool {
	var apiErr files.ListFolderContinueAPIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.EndpointError != nil && apiErr.EndpointError.Tag == files.ListFolderContinueErrorReset
}
