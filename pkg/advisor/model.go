package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itsneelabh/agrimarket/pkg/ai"
	"github.com/itsneelabh/agrimarket/pkg/logger"
)

const diagnosePrompt = `You are a plant pathologist. Examine the attached crop photo and identify the most likely disease.
Respond with a single JSON object with these fields:
  "disease": name of the disease, or "Healthy",
  "confidence": integer percent 0-100,
  "severity": one of "None", "Mild", "Moderate", "Severe",
  "description": one or two sentences,
  "treatment": list of short steps,
  "prevention": list of short steps.`

const chatSystemPrompt = `You are a friendly nutrition assistant for a farmers marketplace.
Give practical advice built around fresh, locally grown produce.
Keep answers under 150 words and end with a follow-up question.`

// Model is an Advisor backed by a language model
type Model struct {
	client  ai.AIClient
	model   string
	timeout time.Duration
	log     logger.Logger
}

// ModelOption configures Model
type ModelOption func(*Model)

// WithModelName selects the model passed to the client
func WithModelName(name string) ModelOption {
	return func(m *Model) { m.model = name }
}

// WithModelTimeout bounds each call
func WithModelTimeout(d time.Duration) ModelOption {
	return func(m *Model) { m.timeout = d }
}

// WithModelLogger sets the logger
func WithModelLogger(l logger.Logger) ModelOption {
	return func(m *Model) { m.log = l }
}

// NewModel creates a model-backed advisor
func NewModel(client ai.AIClient, opts ...ModelOption) *Model {
	m := &Model{client: client, timeout: 30 * time.Second, log: logger.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Predict asks the model for a structured diagnosis
func (m *Model) Predict(ctx context.Context, img Image) (Diagnosis, error) {
	if err := img.Validate(); err != nil {
		return Diagnosis{}, err
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	resp, err := m.client.GenerateResponse(ctx, diagnosePrompt, &ai.GenerationOptions{
		Model:        m.model,
		Temperature:  0.2,
		JSONResponse: true,
		Attachments:  []ai.Attachment{{MIMEType: img.MIMEType, Data: img.Data}},
	})
	if err != nil {
		return Diagnosis{}, m.fail(ctx, "diagnose", err)
	}

	d, err := ParseDiagnosis(resp.Content)
	if err != nil {
		m.log.Warn("Unparseable diagnosis from model", "error", err.Error())
		return Diagnosis{}, fmt.Errorf("%w: %v", ErrAdvisorFailed, err)
	}
	return d, nil
}

// Chat asks the model for a nutrition answer
func (m *Model) Chat(ctx context.Context, message string) (Reply, error) {
	message, err := normalizeMessage(message)
	if err != nil {
		return Reply{}, err
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	resp, err := m.client.GenerateResponse(ctx, message, &ai.GenerationOptions{
		Model:        m.model,
		Temperature:  0.7,
		MaxTokens:    400,
		SystemPrompt: chatSystemPrompt,
	})
	if err != nil {
		return Reply{}, m.fail(ctx, "chat", err)
	}
	return Reply{Message: resp.Content, Source: "model"}, nil
}

func (m *Model) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

func (m *Model) fail(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return context.Canceled
	}
	m.log.Error("Advisor model call failed", "op", op, "error", err.Error())
	return fmt.Errorf("%w: %s: %v", ErrAdvisorFailed, op, err)
}

// ParseDiagnosis decodes a model's JSON answer, tolerating a fenced code block
func ParseDiagnosis(content string) (Diagnosis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var d Diagnosis
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &d); err != nil {
		return Diagnosis{}, fmt.Errorf("failed to decode diagnosis: %w", err)
	}
	if d.Disease == "" {
		return Diagnosis{}, errors.New("diagnosis has no disease")
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 100 {
		d.Confidence = 100
	}
	if d.Treatment == nil {
		d.Treatment = []string{}
	}
	if d.Prevention == nil {
		d.Prevention = []string{}
	}
	return d, nil
}
