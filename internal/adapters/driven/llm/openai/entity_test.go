package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
)

// newStubServer returns a server that replies with the given message
// content and records the last request body.
func newStubServer(t *testing.T, content string) (*httptest.Server, *string) {
	t.Helper()
	var lastBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		lastBody = string(body)

		response := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	t.Cleanup(server.Close)
	return server, &lastBody
}

func newTestService(t *testing.T, baseURL string) *EntityService {
	t.Helper()
	svc, err := NewEntityService(Config{APIKey: "test-key", BaseURL: baseURL})
	require.NoError(t, err)
	return svc
}

func TestNewEntityService_RequiresAPIKey(t *testing.T) {
	_, err := NewEntityService(Config{})

	assert.Error(t, err)
}

func TestExtract_ParsesEntities(t *testing.T) {
	server, lastBody := newStubServer(t, `{
		"project": "Mitchell",
		"contractor": "Geotech",
		"document_type": "invoice",
		"keywords": ["signed", " "],
		"amount_range": {"min": 50000}
	}`)
	svc := newTestService(t, server.URL)

	entities, err := svc.Extract(context.Background(), "find the geotech invoice for mitchell", nil)

	require.NoError(t, err)
	assert.Equal(t, "Mitchell", entities.Project)
	assert.Equal(t, "Geotech", entities.Contractor)
	assert.Equal(t, "invoice", entities.DocType)
	assert.Equal(t, []string{"signed"}, entities.Keywords)
	assert.Equal(t, 50000.0, entities.AmountMin)
	assert.Contains(t, *lastBody, "json_object")
}

func TestExtract_HintsReachThePrompt(t *testing.T) {
	server, lastBody := newStubServer(t, `{}`)
	svc := newTestService(t, server.URL)

	_, err := svc.Extract(context.Background(), "riverside invoices", &driven.EntityHints{
		Projects:    []string{"Riverside Tower"},
		Contractors: []string{"Apex Plumbing"},
	})

	require.NoError(t, err)
	assert.Contains(t, *lastBody, "Riverside Tower")
	assert.Contains(t, *lastBody, "Apex Plumbing")
}

func TestExtract_HandlesFencedJSON(t *testing.T) {
	server, _ := newStubServer(t, "```json\n{\"project\": \"Harbour\"}\n```")
	svc := newTestService(t, server.URL)

	entities, err := svc.Extract(context.Background(), "harbour files", nil)

	require.NoError(t, err)
	assert.Equal(t, "Harbour", entities.Project)
}

func TestExtract_APIErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "invalid key", "type": "auth"}}`)
	}))
	t.Cleanup(server.Close)
	svc := newTestService(t, server.URL)

	_, err := svc.Extract(context.Background(), "anything", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestRefine_SendsPreviousExtraction(t *testing.T) {
	server, lastBody := newStubServer(t, `{"keywords": ["geotechnical"]}`)
	svc := newTestService(t, server.URL)

	refined, err := svc.Refine(context.Background(), "geo report", domain.SearchEntities{
		Contractor: "Geotech",
		DocType:    "report",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"geotechnical"}, refined.Keywords)
	assert.Contains(t, *lastBody, "Geotech")
}

func TestMapToTags_FiltersUnknownTags(t *testing.T) {
	server, lastBody := newStubServer(t, `{"tags": ["Glazing", "landscaping"]}`)
	svc := newTestService(t, server.URL)

	tags, err := svc.MapToTags(context.Background(), "window people", []string{"glazing", "concrete"})

	require.NoError(t, err)
	assert.Equal(t, []string{"glazing"}, tags)
	assert.Contains(t, *lastBody, "glazing, concrete")
}

func TestMapToTags_EmptyVocabularySkipsCall(t *testing.T) {
	svc := newTestService(t, "http://unreachable.invalid")

	tags, err := svc.MapToTags(context.Background(), "anything", nil)

	require.NoError(t, err)
	assert.Nil(t, tags)
}

func TestParseEntities_RejectsMalformedJSON(t *testing.T) {
	_, err := parseEntities("not json at all")

	assert.Error(t, err)
}
