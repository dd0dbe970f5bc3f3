package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/north/internal/core/domain"
)

func seedBackend(t *testing.T) *Backend {
	t.Helper()
	backend := NewBackend()
	ctx := context.Background()
	docs := []domain.Document{
		{SourceID: "id:1", Name: "apex invoice.txt", Path: "/305 Regency/apex invoice.txt", Content: "plumbing rough-in invoice", DocumentMeta: domain.DocumentMeta{Project: "305 Regency", Contractor: "Apex Plumbing", DocType: "invoice"}},
		{SourceID: "id:2", Name: "roof quote.txt", Path: "/912 Oakline/roof quote.txt", Content: "roofing shingle quote", DocumentMeta: domain.DocumentMeta{Project: "912 Oakline", Contractor: "Summit Roofing", DocType: "quote"}},
		{SourceID: "id:3", Name: "permit.txt", Path: "/305 Regency/permit.txt", Content: "building permit approval", DocumentMeta: domain.DocumentMeta{Project: "305 Regency", DocType: "permit"}},
	}
	for _, d := range docs {
		require.NoError(t, backend.Documents().Upsert(ctx, d.SourceID, d))
	}
	return backend
}

func TestKeyword_ScoresByTermOverlap(t *testing.T) {
	backend := seedBackend(t)

	hits, err := backend.Documents().Keyword(context.Background(), "plumbing invoice", nil, 10)

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "id:1", hits[0].ID)
	assert.Equal(t, 1.0, hits[0].Score)
}

func TestKeyword_TiesBreakByID(t *testing.T) {
	backend := seedBackend(t)

	// Both Regency docs match "regency" with the same score.
	hits, err := backend.Documents().Keyword(context.Background(), "regency", nil, 10)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "id:1", hits[0].ID)
	assert.Equal(t, "id:3", hits[1].ID)
}

func TestKeyword_FiltersNarrowResults(t *testing.T) {
	backend := seedBackend(t)
	filters := []domain.Filter{
		{Fields: []string{domain.FieldContractor}, Op: domain.FilterContains, Value: "apex"},
	}

	hits, err := backend.Documents().Keyword(context.Background(), "invoice quote permit", filters, 10)

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "id:1", hits[0].ID)
}

func TestGet_MissingRecordIsNotFound(t *testing.T) {
	backend := seedBackend(t)

	_, err := backend.Documents().Get(context.Background(), "id:99")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsert_ReplacesExistingRecord(t *testing.T) {
	backend := seedBackend(t)
	ctx := context.Background()

	updated := domain.Document{SourceID: "id:1", Name: "renamed.txt", Path: "/renamed.txt"}
	require.NoError(t, backend.Documents().Upsert(ctx, "id:1", updated))

	hit, err := backend.Documents().Get(ctx, "id:1")
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", hit.Fields.Name)
	count, err := backend.Documents().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDelete_AbsentIDIsNoError(t *testing.T) {
	backend := seedBackend(t)

	assert.NoError(t, backend.Documents().Delete(context.Background(), "id:99"))
}

func TestFetch_StableOrderAndLimit(t *testing.T) {
	backend := seedBackend(t)

	hits, err := backend.Documents().Fetch(context.Background(), nil, 2)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "id:1", hits[0].ID)
	assert.Equal(t, "id:2", hits[1].ID)
}

func TestMatchesFilters_FieldsORedFiltersANDed(t *testing.T) {
	fields := map[string]string{
		domain.FieldProject:    "305 Regency",
		domain.FieldContractor: "Apex Plumbing",
	}

	orWithin := []domain.Filter{
		{Fields: []string{domain.FieldVendor, domain.FieldContractor}, Op: domain.FilterContains, Value: "apex"},
	}
	assert.True(t, MatchesFilters(fields, orWithin))

	anded := []domain.Filter{
		{Fields: []string{domain.FieldProject}, Op: domain.FilterEquals, Value: "305 Regency"},
		{Fields: []string{domain.FieldContractor}, Op: domain.FilterEquals, Value: "Summit Roofing"},
	}
	assert.False(t, MatchesFilters(fields, anded))
}

func TestOverlapScore_FractionOfTermsMatched(t *testing.T) {
	fields := map[string]string{domain.FieldContent: "roofing shingle quote"}

	score := overlapScore(fields, []string{"roofing", "invoice"})

	assert.Equal(t, 0.5, score)
}
