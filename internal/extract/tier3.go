package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nlfhir/bridge/internal/errs"
	"github.com/nlfhir/bridge/internal/model"

	"google.golang.org/genai"
)

// llmEntity mirrors model.Entity but is the shape we constrain the LLM's
// structured output to — a medication entity may carry embedded
// dosage/frequency/route fields that must be flattened into sibling
// entities by the caller (see flatten.go).
type llmEntity struct {
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Dosage     string  `json:"dosage,omitempty"`
	Frequency  string  `json:"frequency,omitempty"`
	Route      string  `json:"route,omitempty"`
}

type llmExtractionResponse struct {
	Entities []llmEntity `json:"entities"`
}

// StructuredCompleter abstracts the LLM call so tier3 is testable without a
// live API key; GenAICompleter is the production implementation.
type StructuredCompleter interface {
	CompleteStructured(ctx context.Context, prompt string) ([]byte, error)
}

// GenAICompleter calls Gemini with a JSON-schema-constrained generation
// config, the same ResponseMimeType/ResponseSchema pattern used for
// structured output elsewhere in the retrieval pack.
type GenAICompleter struct {
	client *genai.Client
	model  string
}

// NewGenAICompleter constructs a GenAICompleter. model defaults to
// "gemini-2.0-flash" when empty.
func NewGenAICompleter(ctx context.Context, apiKey, modelName string) (*GenAICompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAICompleter{client: client, model: modelName}, nil
}

func entitySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"entities": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text":       {Type: genai.TypeString},
						"category":   {Type: genai.TypeString},
						"confidence": {Type: genai.TypeNumber},
						"dosage":     {Type: genai.TypeString},
						"frequency":  {Type: genai.TypeString},
						"route":      {Type: genai.TypeString},
					},
					Required: []string{"text", "category", "confidence"},
				},
			},
		},
		Required: []string{"entities"},
	}
}

// CompleteStructured issues one Gemini GenerateContent call constrained to
// the entity-extraction JSON schema and returns the raw response body.
func (g *GenAICompleter) CompleteStructured(ctx context.Context, prompt string) ([]byte, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   entitySchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("genai generate content failed: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("genai returned no candidates")
	}
	return []byte(resp.Candidates[0].Content.Parts[0].Text), nil
}

const tier3SystemPrompt = `Extract clinical entities (medications, dosages, frequencies, routes, conditions, lab_tests, procedures, patients, practitioners, devices, observations, instructions) from the clinical order text. For each medication, include its dosage, frequency, and route inline when present.`

func tier3Prompt(text string) string {
	return tier3SystemPrompt + "\n\nText: " + text
}

// tier3Extract calls the LLM once, retries once on schema violation, and
// returns entities that REPLACE (not union with) the prior tier result. On
// any failure it returns nil entities and a diagnostic string; the caller
// keeps the prior tier's result unchanged.
func tier3Extract(ctx context.Context, completer StructuredCompleter, text string, timeout time.Duration) ([]model.Entity, string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := completer.CompleteStructured(cctx, tier3Prompt(text))
	if err != nil {
		return nil, "llm call failed: " + err.Error(), err
	}

	entities, parseErr := parseLLMResponse(raw)
	if parseErr != nil {
		// One retry on schema violation.
		raw, err = completer.CompleteStructured(cctx, tier3Prompt(text))
		if err != nil {
			return nil, "llm retry call failed: " + err.Error(), err
		}
		entities, parseErr = parseLLMResponse(raw)
		if parseErr != nil {
			return nil, "llm schema violation after retry", fmt.Errorf("%w: %v", errs.ErrSchemaViolation, parseErr)
		}
	}

	return entities, "", nil
}

func parseLLMResponse(raw []byte) ([]model.Entity, error) {
	var parsed llmExtractionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	return flattenMedicationEntities(parsed.Entities), nil
}
