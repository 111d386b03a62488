package ai

import (
	"context"
	"errors"
)

// ErrGenerationFailed marks any failure of the model provider
var ErrGenerationFailed = errors.New("ai generation failed")

// AIClient provides a unified interface for different AI providers
type AIClient interface {
	GenerateResponse(ctx context.Context, prompt string, options *GenerationOptions) (*AIResponse, error)
	GetProviderInfo() ProviderInfo
}

// Attachment is binary input sent alongside the prompt, such as a photo
type Attachment struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// GenerationOptions configures AI generation parameters
type GenerationOptions struct {
	Model        string            `json:"model,omitempty"`
	Temperature  float64           `json:"temperature,omitempty"`
	MaxTokens    int               `json:"max_tokens,omitempty"`
	SystemPrompt string            `json:"system_prompt,omitempty"`
	JSONResponse bool              `json:"json_response,omitempty"`
	Attachments  []Attachment      `json:"attachments,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// AIResponse represents a complete AI model response
type AIResponse struct {
	Content      string            `json:"content"`
	Model        string            `json:"model"`
	Usage        TokenUsage        `json:"usage"`
	FinishReason string            `json:"finish_reason"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// TokenUsage tracks API usage
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderInfo contains AI provider details
type ProviderInfo struct {
	Name         string   `json:"name"`
	Models       []string `json:"models"`
	Capabilities []string `json:"capabilities"`
	Version      string   `json:"version"`
}
