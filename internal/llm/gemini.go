package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// geminiModels maps friendly names to Gemini model IDs.
var geminiModels = map[string]string{
	"gemini-flash": "gemini-2.0-flash",
	"gemini-pro":   "gemini-2.0-pro",
}

// GeminiProvider implements Provider using the Google Gemini SDK. It is the
// only provider with a native search-grounding tool, so grounded requests
// carry source citations here and degrade to plain answers elsewhere.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	model := resolveModel(cfg.Model, geminiModels)

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	config := p.buildConfig(req)
	contents := buildGeminiContents(req)

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, mapGeminiError(err)
	}

	text := result.Text()
	resp := &Response{
		Text:       text,
		Model:      p.model,
		StopReason: mapGeminiStopReason(result),
		Sources:    extractGeminiSources(result),
	}

	if req.Schema != nil {
		content := json.RawMessage(text)
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
		resp.Content = content
	}

	if result.UsageMetadata != nil {
		resp.Usage = Usage{
			InputTokens:  int(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(result.UsageMetadata.TotalTokenCount),
		}
	}

	return resp, nil
}

func (p *GeminiProvider) GenerateStream(ctx context.Context, req Request, onChunk func(string)) (*Response, error) {
	config := p.buildConfig(req)
	config.ResponseMIMEType = ""
	config.ResponseSchema = nil
	config.Tools = nil

	contents := buildGeminiContents(req)

	var (
		full strings.Builder
		last *genai.GenerateContentResponse
	)
	for chunk, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, config) {
		if err != nil {
			return nil, mapGeminiError(err)
		}
		last = chunk
		if text := chunk.Text(); text != "" {
			full.WriteString(text)
			onChunk(text)
		}
	}

	resp := &Response{
		Text:       full.String(),
		Model:      p.model,
		StopReason: "end",
	}
	if last != nil {
		resp.StopReason = mapGeminiStopReason(last)
		if last.UsageMetadata != nil {
			resp.Usage = Usage{
				InputTokens:  int(last.UsageMetadata.PromptTokenCount),
				OutputTokens: int(last.UsageMetadata.CandidatesTokenCount),
				TotalTokens:  int(last.UsageMetadata.TotalTokenCount),
			}
		}
	}
	return resp, nil
}

func (p *GeminiProvider) ModelID() string {
	return p.model
}

func (p *GeminiProvider) buildConfig(req Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
	}

	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}

	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	// Structured output and search grounding are mutually exclusive on the
	// Gemini API; a schema wins.
	switch {
	case req.Schema != nil:
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = buildGeminiSchema(req.Schema.Definition)
	case req.Search:
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	return config
}

func buildGeminiContents(req Request) []*genai.Content {
	out := make([]*genai.Content, len(req.Messages))
	for i, m := range req.Messages {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out[i] = &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		}
	}

	// Inline attachment rides with the final user turn.
	if req.Image != nil && len(out) > 0 {
		last := out[len(out)-1]
		if last.Role == "user" {
			last.Parts = append(last.Parts, &genai.Part{
				InlineData: &genai.Blob{
					Data:     req.Image.Data,
					MIMEType: req.Image.MimeType,
				},
			})
		}
	}

	return out
}

// extractGeminiSources pulls web citations out of grounding metadata.
func extractGeminiSources(result *genai.GenerateContentResponse) []SourceRef {
	if len(result.Candidates) == 0 {
		return nil
	}
	gm := result.Candidates[0].GroundingMetadata
	if gm == nil {
		return nil
	}

	var sources []SourceRef
	for _, chunk := range gm.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		sources = append(sources, SourceRef{
			URI:   chunk.Web.URI,
			Title: chunk.Web.Title,
		})
	}
	return sources
}

// buildGeminiSchema converts a JSON Schema definition map to a genai.Schema.
func buildGeminiSchema(def map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	if t, ok := def["type"].(string); ok {
		schema.Type = mapGeminiType(t)
	}
	if desc, ok := def["description"].(string); ok {
		schema.Description = desc
	}

	if props, ok := def["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for k, v := range props {
			if propDef, ok := v.(map[string]any); ok {
				schema.Properties[k] = buildGeminiSchema(propDef)
			}
		}
	}

	if req, ok := def["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	if enums, ok := def["enum"].([]any); ok {
		for _, e := range enums {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}

	if items, ok := def["items"].(map[string]any); ok {
		schema.Items = buildGeminiSchema(items)
	}

	if n, ok := schemaInt(def["minItems"]); ok {
		schema.MinItems = genai.Ptr(n)
	}
	if n, ok := schemaInt(def["maxItems"]); ok {
		schema.MaxItems = genai.Ptr(n)
	}
	if f, ok := schemaFloat(def["minimum"]); ok {
		schema.Minimum = genai.Ptr(f)
	}
	if f, ok := schemaFloat(def["maximum"]); ok {
		schema.Maximum = genai.Ptr(f)
	}

	return schema
}

// schemaInt reads a numeric schema bound. Literal definitions carry ints,
// JSON-decoded ones carry float64.
func schemaInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func schemaFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func mapGeminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func mapGeminiStopReason(result *genai.GenerateContentResponse) string {
	if len(result.Candidates) > 0 {
		switch result.Candidates[0].FinishReason {
		case "STOP":
			return "end"
		case "MAX_TOKENS":
			return "max_tokens"
		}
	}
	return "end"
}

func mapGeminiError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &ErrRateLimit{Err: err}
		case apiErr.Code >= 500:
			return &ErrProviderUnavailable{Err: err}
		}
	}
	return &ErrProviderUnavailable{Err: err}
}
