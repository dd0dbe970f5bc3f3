// Package openai provides an entity extraction service adapter using
// the OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
)

// Ensure EntityService implements the interface.
var _ driven.EntityService = (*EntityService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 20 * time.Second

	// hintLimit caps how many known names are fed into the prompt.
	hintLimit = 10
)

// Config holds configuration for the OpenAI entity service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 20s).
	Timeout time.Duration
}

// EntityService extracts structured search intent using OpenAI chat
// completions with JSON output.
type EntityService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatCompletionMsg `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// wireEntities is the JSON shape the model is asked to produce.
type wireEntities struct {
	Project      string   `json:"project"`
	Contractor   string   `json:"contractor"`
	DocumentType string   `json:"document_type"`
	Keywords     []string `json:"keywords"`
	SpecificFile string   `json:"specific_file"`
	DateRange    struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"date_range"`
	AmountRange struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"amount_range"`
}

// wireTags is the JSON shape for tag mapping.
type wireTags struct {
	Tags []string `json:"tags"`
}

// NewEntityService creates a new OpenAI entity service.
func NewEntityService(cfg Config) (*EntityService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &EntityService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

const extractSystemPrompt = `You are an entity extraction specialist for a construction company's document search system.

Your task is to extract structured information from user queries about documents.

Important guidelines:
1. Extract entities as they appear in the query - don't assume or expand names unless obvious
2. For ambiguous terms, extract them as-is
3. Document types should be normalised to base forms (invoice, contract, report, etc.)
4. Include any specific details mentioned (dates, amounts, invoice numbers)
5. Omit fields the query does not mention

Respond with a JSON object using these keys:
project, contractor, document_type, keywords, specific_file, date_range {from, to}, amount_range {min, max}.

Examples:
- "Find the Geotech invoice for Mitchell" ->
  {"project": "Mitchell", "contractor": "Geotech", "document_type": "invoice"}
- "Show me all contracts over $50k from last month" ->
  {"document_type": "contract", "amount_range": {"min": 50000}, "date_range": {"from": "last month"}}
- "Where is the signed painter agreement for 305 Regency?" ->
  {"project": "305 Regency", "contractor": "painter", "document_type": "agreement", "keywords": ["signed"]}

Remember: extract what is there, don't invent or assume.`

// Extract parses a query into entities.
func (s *EntityService) Extract(ctx context.Context, query string, hints *driven.EntityHints) (domain.SearchEntities, error) {
	prompt := extractSystemPrompt
	if hints != nil && (len(hints.Projects) > 0 || len(hints.Contractors) > 0) {
		var sb strings.Builder
		sb.WriteString(prompt)
		sb.WriteString("\n\nDiscovered entities from the system:\n")
		if len(hints.Projects) > 0 {
			sb.WriteString("Known projects: " + strings.Join(capList(hints.Projects, hintLimit), ", ") + "\n")
		}
		if len(hints.Contractors) > 0 {
			sb.WriteString("Known contractors: " + strings.Join(capList(hints.Contractors, hintLimit), ", ") + "\n")
		}
		sb.WriteString("\nUse these as hints but don't force matches - extract what the user actually said.")
		prompt = sb.String()
	}

	content, err := s.chatJSON(ctx, prompt, query)
	if err != nil {
		return domain.SearchEntities{}, fmt.Errorf("extract entities: %w", err)
	}
	return parseEntities(content)
}

const refineSystemPrompt = `The initial document search found no results. Re-extract the entities with these considerations:
1. Expand any abbreviations that might be too specific
2. Consider alternative phrasings or synonyms
3. Try broader terms if the initial extraction was too narrow
4. Keep the core intent but be more flexible

Previous extraction: %s

Respond with a JSON object using these keys:
project, contractor, document_type, keywords, specific_file, date_range {from, to}, amount_range {min, max}.`

// Refine produces a looser second-pass interpretation.
func (s *EntityService) Refine(ctx context.Context, query string, previous domain.SearchEntities) (domain.SearchEntities, error) {
	previousJSON, err := json.Marshal(entitiesToWire(previous))
	if err != nil {
		return domain.SearchEntities{}, fmt.Errorf("encode previous entities: %w", err)
	}

	content, err := s.chatJSON(ctx, fmt.Sprintf(refineSystemPrompt, previousJSON), query)
	if err != nil {
		return domain.SearchEntities{}, fmt.Errorf("refine entities: %w", err)
	}
	return parseEntities(content)
}

const mapTagsSystemPrompt = `You match a user's question about contractors and suppliers onto a fixed tag vocabulary.

Known tags: %s

Pick the tags that answer the question. Only use tags from the list, never invent new ones. If nothing fits, return an empty list.

Respond with a JSON object: {"tags": ["..."]}`

// MapToTags maps a query onto a known tag vocabulary. Tags the model
// returns that are not in the vocabulary are dropped.
func (s *EntityService) MapToTags(ctx context.Context, query string, known []string) ([]string, error) {
	if len(known) == 0 {
		return nil, nil
	}

	content, err := s.chatJSON(ctx, fmt.Sprintf(mapTagsSystemPrompt, strings.Join(known, ", ")), query)
	if err != nil {
		return nil, fmt.Errorf("map tags: %w", err)
	}

	var wire wireTags
	if err := json.Unmarshal(stripFences(content), &wire); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	allowed := make(map[string]bool, len(known))
	for _, tag := range known {
		allowed[strings.ToLower(tag)] = true
	}
	var tags []string
	for _, tag := range wire.Tags {
		if allowed[strings.ToLower(tag)] {
			tags = append(tags, strings.ToLower(tag))
		}
	}
	return tags, nil
}

// ModelName returns the name of the model being used.
func (s *EntityService) ModelName() string {
	return s.model
}

// Close releases resources.
func (s *EntityService) Close() error {
	return nil
}

// chatJSON runs one chat completion in JSON mode and returns the raw
// message content.
func (s *EntityService) chatJSON(ctx context.Context, system, user string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: s.model,
		Messages: []chatCompletionMsg{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:      300,
		Temperature:    0.1,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// parseEntities decodes the model's JSON into domain entities.
func parseEntities(content string) (domain.SearchEntities, error) {
	var wire wireEntities
	if err := json.Unmarshal(stripFences(content), &wire); err != nil {
		return domain.SearchEntities{}, fmt.Errorf("decode entities: %w", err)
	}

	return domain.SearchEntities{
		Project:      strings.TrimSpace(wire.Project),
		Contractor:   strings.TrimSpace(wire.Contractor),
		DocType:      strings.TrimSpace(wire.DocumentType),
		Keywords:     cleanKeywords(wire.Keywords),
		SpecificFile: strings.TrimSpace(wire.SpecificFile),
		DateFrom:     strings.TrimSpace(wire.DateRange.From),
		DateTo:       strings.TrimSpace(wire.DateRange.To),
		AmountMin:    wire.AmountRange.Min,
		AmountMax:    wire.AmountRange.Max,
	}, nil
}

func entitiesToWire(e domain.SearchEntities) wireEntities {
	var wire wireEntities
	wire.Project = e.Project
	wire.Contractor = e.Contractor
	wire.DocumentType = e.DocType
	wire.Keywords = e.Keywords
	wire.SpecificFile = e.SpecificFile
	wire.DateRange.From = e.DateFrom
	wire.DateRange.To = e.DateTo
	wire.AmountRange.Min = e.AmountMin
	wire.AmountRange.Max = e.AmountMax
	return wire
}

func cleanKeywords(keywords []string) []string {
	var cleaned []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	return cleaned
}

// stripFences removes a markdown code fence around a JSON body, which
// some models emit even in JSON mode.
func stripFences(content string) []byte {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return []byte(trimmed)
}

func capList(values []string, limit int) []string {
	if len(values) > limit {
		return values[:limit]
	}
	return values
}
