package dropbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/auth"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
)

type mockClient struct {
	pages       []*files.ListFolderResult
	page        int
	listErr     error
	continueErr error
	cursorErr   error
	lastCursor  string
	downloadMD  *files.FileMetadata
	downloadRaw []byte
	downloadErr error

	// downloadRateLimits makes that many Download calls answer 429
	// before succeeding.
	downloadRateLimits int
	downloadCalls      int
}

func rateLimitErr(retryAfter uint64) error {
	return auth.RateLimitAPIError{
		RateLimitError: &auth.RateLimitError{RetryAfter: retryAfter},
	}
}

func (m *mockClient) ListFolder(_ *files.ListFolderArg) (*files.ListFolderResult, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.nextPage()
}

func (m *mockClient) ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error) {
	m.lastCursor = arg.Cursor
	if m.continueErr != nil {
		return nil, m.continueErr
	}
	return m.nextPage()
}

func (m *mockClient) ListFolderGetLatestCursor(_ *files.ListFolderArg) (*files.ListFolderGetLatestCursorResult, error) {
	if m.cursorErr != nil {
		return nil, m.cursorErr
	}
	return &files.ListFolderGetLatestCursorResult{Cursor: "cursor-latest"}, nil
}

func (m *mockClient) Download(_ *files.DownloadArg) (*files.FileMetadata, io.ReadCloser, error) {
	m.downloadCalls++
	if m.downloadRateLimits > 0 {
		m.downloadRateLimits--
		return nil, nil, rateLimitErr(1)
	}
	if m.downloadErr != nil {
		return nil, nil, m.downloadErr
	}
	return m.downloadMD, io.NopCloser(bytes.NewReader(m.downloadRaw)), nil
}

func (m *mockClient) nextPage() (*files.ListFolderResult, error) {
	if m.page >= len(m.pages) {
		return &files.ListFolderResult{Cursor: "cursor-end"}, nil
	}
	page := m.pages[m.page]
	m.page++
	return page, nil
}

func fileEntry(id, name, path string) *files.FileMetadata {
	md := &files.FileMetadata{
		Id:             id,
		Size:           42,
		ServerModified: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	md.Name = name
	md.PathDisplay = path
	md.PathLower = path
	md.Rev = "rev-" + id
	md.ContentHash = "hash-" + id
	return md
}

func folderEntry(id, name, path string) *files.FolderMetadata {
	md := &files.FolderMetadata{Id: id}
	md.Name = name
	md.PathDisplay = path
	return md
}

func deletedEntry(name, path string) *files.DeletedMetadata {
	md := &files.DeletedMetadata{}
	md.Name = name
	md.PathDisplay = path
	return md
}

func newTestSource(client listClient) *FileSource {
	return newWithClient(client, Config{Root: "/North", RequestsPerSecond: 1000, Burst: 1000})
}

func collectItems(t *testing.T, items <-chan domain.SourceItem, errs <-chan error) ([]domain.SourceItem, string, error) {
	t.Helper()
	var (
		collected []domain.SourceItem
		cursor    string
		failure   error
	)
	for items != nil || errs != nil {
		select {
		case item, ok := <-items:
			if !ok {
				items = nil
				continue
			}
			collected = append(collected, item)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if sc, done := driven.IsSyncComplete(err); done {
				cursor = sc.NewCursor
				continue
			}
			failure = err
		}
	}
	return collected, cursor, failure
}

func TestFullSync_PagesThroughListing(t *testing.T) {
	client := &mockClient{pages: []*files.ListFolderResult{
		{
			Entries: []files.IsMetadata{
				folderEntry("id:f1", "Invoices", "/North/Invoices"),
				fileEntry("id:a", "a.pdf", "/North/Invoices/a.pdf"),
			},
			Cursor:  "cursor-1",
			HasMore: true,
		},
		{
			Entries: []files.IsMetadata{
				fileEntry("id:b", "b.pdf", "/North/Invoices/b.pdf"),
			},
			Cursor: "cursor-2",
		},
	}}
	source := newTestSource(client)

	items, errs := source.FullSync(context.Background())
	collected, cursor, failure := collectItems(t, items, errs)

	require.NoError(t, failure)
	assert.Equal(t, "cursor-2", cursor)
	require.Len(t, collected, 3)
	assert.Equal(t, domain.ItemFolder, collected[0].Type)
	assert.Equal(t, "id:a", collected[1].ID)
	assert.Equal(t, "hash-id:a", collected[1].ContentHash)
	// The second page was fetched with the first page's cursor.
	assert.Equal(t, "cursor-1", client.lastCursor)
}

func TestFullSync_ListFailureReported(t *testing.T) {
	client := &mockClient{listErr: errors.New("boom")}
	source := newTestSource(client)

	items, errs := source.FullSync(context.Background())
	collected, _, failure := collectItems(t, items, errs)

	assert.Empty(t, collected)
	require.Error(t, failure)
	assert.Contains(t, failure.Error(), "boom")
}

func TestIncrementalSync_ClassifiesChanges(t *testing.T) {
	client := &mockClient{pages: []*files.ListFolderResult{
		{
			Entries: []files.IsMetadata{
				fileEntry("id:a", "a.pdf", "/North/a.pdf"),
				deletedEntry("old.pdf", "/North/old.pdf"),
			},
			Cursor: "cursor-3",
		},
	}}
	source := newTestSource(client)

	changes, errs := source.IncrementalSync(context.Background(), domain.SyncState{Cursor: "cursor-2"})

	var collected []domain.ItemChange
	var cursor string
	for changes != nil || errs != nil {
		select {
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			collected = append(collected, change)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if sc, done := driven.IsSyncComplete(err); done {
				cursor = sc.NewCursor
				continue
			}
			require.NoError(t, err)
		}
	}

	assert.Equal(t, "cursor-3", cursor)
	require.Len(t, collected, 2)
	assert.Equal(t, domain.ChangeUpserted, collected[0].Kind)
	assert.Equal(t, "id:a", collected[0].Item.ID)
	assert.Equal(t, domain.ChangeDeleted, collected[1].Kind)
	assert.Equal(t, "/North/old.pdf", collected[1].Item.Path)
}

func TestIncrementalSync_ResetMapsToCursorExpired(t *testing.T) {
	resetErr := files.ListFolderContinueAPIError{
		EndpointError: &files.ListFolderContinueError{
			Tagged: dropbox.Tagged{Tag: files.ListFolderContinueErrorReset},
		},
	}
	client := &mockClient{continueErr: resetErr}
	source := newTestSource(client)

	changes, errs := source.IncrementalSync(context.Background(), domain.SyncState{Cursor: "stale"})

	for range changes {
	}
	var failure error
	for err := range errs {
		failure = err
	}
	assert.ErrorIs(t, failure, domain.ErrCursorExpired)
}

func TestIncrementalSync_OtherErrorsPassThrough(t *testing.T) {
	client := &mockClient{continueErr: errors.New("transient")}
	source := newTestSource(client)

	changes, errs := source.IncrementalSync(context.Background(), domain.SyncState{Cursor: "c"})

	for range changes {
	}
	var failure error
	for err := range errs {
		failure = err
	}
	require.Error(t, failure)
	assert.NotErrorIs(t, failure, domain.ErrCursorExpired)
}

func TestValidate_WrapsFailures(t *testing.T) {
	client := &mockClient{cursorErr: errors.New("bad token")}
	source := newTestSource(client)

	err := source.Validate(context.Background())

	assert.ErrorIs(t, err, domain.ErrSourceValidation)
}

func TestDownload_RefusesOversizedFiles(t *testing.T) {
	md := fileEntry("id:big", "big.pdf", "/North/big.pdf")
	md.Size = MaxDownloadSize + 1
	client := &mockClient{downloadMD: md, downloadRaw: []byte("x")}
	source := newTestSource(client)

	_, err := source.Download(context.Background(), "/North/big.pdf")

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestDownload_ReturnsContent(t *testing.T) {
	md := fileEntry("id:a", "a.txt", "/North/a.txt")
	client := &mockClient{downloadMD: md, downloadRaw: []byte("hello")}
	source := newTestSource(client)

	content, err := source.Download(context.Background(), "/North/a.txt")

	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), content)
}

func TestDownload_RetriesAfterRateLimit(t *testing.T) {
	md := fileEntry("id:a", "a.txt", "/North/a.txt")
	client := &mockClient{downloadMD: md, downloadRaw: []byte("hello"), downloadRateLimits: 1}
	source := newTestSource(client)

	start := time.Now()
	content, err := source.Download(context.Background(), "/North/a.txt")

	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), content)
	assert.Equal(t, 2, client.downloadCalls)
	// The Retry-After second was honoured before the second attempt.
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestDownload_RateLimitExhaustionSurfaces(t *testing.T) {
	client := &mockClient{downloadRateLimits: 100}
	source := newTestSource(client)

	_, err := source.Download(context.Background(), "/North/a.txt")

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, maxRateLimitRetries+1, client.downloadCalls)
}

func TestIsRateLimited_ReadsRetryAfter(t *testing.T) {
	retryAfter, ok := isRateLimited(rateLimitErr(7))
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, retryAfter)

	_, ok = isRateLimited(errors.New("boom"))
	assert.False(t, ok)
}

func TestNormaliseRoot(t *testing.T) {
	assert.Equal(t, "", normaliseRoot("/"))
	assert.Equal(t, "", normaliseRoot(" / "))
	assert.Equal(t, "/Projects", normaliseRoot("/Projects"))
	assert.Equal(t, "", normaliseRoot(""))
}
