package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/itsneelabh/agrimarket/pkg/logger"
)

// DefaultGeminiModel is used when neither the client nor the call names a model
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures a GeminiClient
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // overrides the API endpoint, mainly for tests
	HTTPClient *http.Client
	Logger     logger.Logger
}

// GeminiClient implements AIClient on the Gemini API
type GeminiClient struct {
	client *genai.Client
	model  string
	log    logger.Logger
}

// NewGeminiClient creates a Gemini client
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model, log: cfg.Logger}, nil
}

// GenerateResponse sends prompt and any attachments as one user turn
func (c *GeminiClient) GenerateResponse(ctx context.Context, prompt string, options *GenerationOptions) (*AIResponse, error) {
	if options == nil {
		options = &GenerationOptions{}
	}
	model := options.Model
	if model == "" {
		model = c.model
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, a := range options.Attachments {
		parts = append(parts, genai.NewPartFromBytes(a.Data, a.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{}
	if options.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(options.Temperature))
	}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(options.SystemPrompt, genai.RoleUser)
	}
	if options.JSONResponse {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	out := &AIResponse{Content: text, Model: model}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	c.log.Debug("Gemini response received",
		"model", model,
		"finish_reason", out.FinishReason,
		"total_tokens", out.Usage.TotalTokens)
	return out, nil
}

// GetProviderInfo describes the provider
func (c *GeminiClient) GetProviderInfo() ProviderInfo {
	return ProviderInfo{
		Name:         "Google Gemini",
		Models:       []string{c.model},
		Capabilities: []string{"text-generation", "vision", "json-output"},
		Version:      "v1beta",
	}
}
