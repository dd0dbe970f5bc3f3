package dropbox

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
	"github.com/custodia-labs/north/internal/logger"
)

// Ensure FileSource implements the interface.
var _ driven.FileSource = (*FileSource)(nil)

// MaxDownloadSize caps how much of a file is fetched for extraction.
const MaxDownloadSize = 5 * 1024 * 1024 // 5MB

// listClient is the slice of the Dropbox files API the source uses.
// Narrowing the SDK client keeps the source testable.
type listClient interface {
	ListFolder(arg *files.ListFolderArg) (*files.ListFolderResult, error)
	ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error)
	ListFolderGetLatestCursor(arg *files.ListFolderArg) (*files.ListFolderGetLatestCursorResult, error)
	Download(arg *files.DownloadArg) (*files.FileMetadata, io.ReadCloser, error)
}

// Config holds the Dropbox source configuration.
type Config struct {
	// Token is the OAuth2 access token.
	Token string

	// Root is the watched folder path ("/Projects"). Empty watches
	// the whole Dropbox.
	Root string

	// RequestsPerSecond and Burst override the rate limiter
	// defaults when positive.
	RequestsPerSecond float64
	Burst             int
}

// FileSource syncs a Dropbox folder.
type FileSource struct {
	client  listClient
	root    string
	limiter *rateLimiter
}

// New creates a Dropbox file source from an access token.
func New(cfg Config) *FileSource {
	client := files.New(dropbox.Config{Token: cfg.Token})
	return newWithClient(client, cfg)
}

func newWithClient(client listClient, cfg Config) *FileSource {
	return &FileSource{
		client:  client,
		root:    normaliseRoot(cfg.Root),
		limiter: newRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
}

// Type returns the source type identifier.
func (s *FileSource) Type() string { return "dropbox" }

// maxRateLimitRetries bounds how often one call is retried after a
// 429 before the error surfaces.
const maxRateLimitRetries = 2

// call runs fn under the rate limiter. A 429 answer feeds its
// Retry-After window back into the limiter, so concurrent callers
// hold off too, and the call is retried once the window passes.
func (s *FileSource) call(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		retryAfter, limited := isRateLimited(err)
		if !limited {
			return err
		}
		s.limiter.recordRateLimit(retryAfter)
		if attempt >= maxRateLimitRetries {
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
		logger.Warn("dropbox rate limited, backing off (retry-after %s)", retryAfter)
	}
}

// Validate checks credentials and folder access with a cursor request,
// the cheapest call that exercises both.
func (s *FileSource) Validate(ctx context.Context) error {
	arg := files.NewListFolderArg(s.root)
	arg.Recursive = true
	err := s.call(ctx, func() error {
		_, err := s.client.ListFolderGetLatestCursor(arg)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSourceValidation, err)
	}
	return nil
}

// FullSync lists every item under the watched folder.
func (s *FileSource) FullSync(ctx context.Context) (<-chan domain.SourceItem, <-chan error) {
	items := make(chan domain.SourceItem)
	errs := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errs)

		arg := files.NewListFolderArg(s.root)
		arg.Recursive = true

		var cursor string
		for {
			var result *files.ListFolderResult
			err := s.call(ctx, func() error {
				var callErr error
				if cursor == "" {
					result, callErr = s.client.ListFolder(arg)
				} else {
					result, callErr = s.client.ListFolderContinue(files.NewListFolderContinueArg(cursor))
				}
				return callErr
			})
			if err != nil {
				errs <- fmt.Errorf("list folder %q: %w", s.root, err)
				return
			}

			for _, entry := range result.Entries {
				item, ok := entryToItem(entry)
				if !ok {
					continue
				}
				select {
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				case items <- item:
				}
			}

			cursor = result.Cursor
			if !result.HasMore {
				break
			}
		}

		errs <- &driven.SyncComplete{NewCursor: cursor}
	}()

	return items, errs
}

// IncrementalSync fetches changes since the state's cursor.
func (s *FileSource) IncrementalSync(ctx context.Context, state domain.SyncState) (<-chan domain.ItemChange, <-chan error) {
	changes := make(chan domain.ItemChange)
	errs := make(chan error, 1)

	go func() {
		defer close(changes)
		defer close(errs)

		cursor := state.Cursor
		for {
			var result *files.ListFolderResult
			err := s.call(ctx, func() error {
				var callErr error
				result, callErr = s.client.ListFolderContinue(files.NewListFolderContinueArg(cursor))
				return callErr
			})
			if err != nil {
				if isCursorReset(err) {
					logger.Warn("dropbox cursor invalidated, full resync required")
					errs <- domain.ErrCursorExpired
					return
				}
				errs <- fmt.Errorf("continue listing: %w", err)
				return
			}

			for _, entry := range result.Entries {
				change, ok := entryToChange(entry)
				if !ok {
					continue
				}
				select {
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				case changes <- change:
				}
			}

			cursor = result.Cursor
			if !result.HasMore {
				break
			}
		}

		errs <- &driven.SyncComplete{NewCursor: cursor}
	}()

	return changes, errs
}

// Download fetches the raw bytes of a file by path. Oversized files
// are refused rather than truncated: a partial document would index
// with the wrong content hash.
func (s *FileSource) Download(ctx context.Context, path string) ([]byte, error) {
	var (
		meta *files.FileMetadata
		body io.ReadCloser
	)
	err := s.call(ctx, func() error {
		var callErr error
		meta, body, callErr = s.client.Download(files.NewDownloadArg(path))
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("download %q: %w", path, err)
	}
	defer body.Close()

	if meta != nil && meta.Size > MaxDownloadSize {
		return nil, fmt.Errorf("%w: %q is %d bytes, cap is %d", domain.ErrUnsupportedType, path, meta.Size, MaxDownloadSize)
	}

	content, err := io.ReadAll(io.LimitReader(body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	if len(content) > MaxDownloadSize {
		return nil, fmt.Errorf("%w: %q exceeds the %d byte cap", domain.ErrUnsupportedType, path, MaxDownloadSize)
	}
	return content, nil
}

// Close releases resources. The Dropbox client is stateless.
func (s *FileSource) Close() error { return nil }

// normaliseRoot maps the conventional "/" root onto the empty string
// the Dropbox API expects.
func normaliseRoot(root string) string {
	root = strings.TrimSpace(root)
	if root == "/" {
		return ""
	}
	return root
}
