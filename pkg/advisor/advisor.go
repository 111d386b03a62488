// Package advisor answers crop disease and nutrition questions.
//
// Predictor diagnoses a crop photo and Chatter answers a free-text nutrition
// question. Canned returns fixed answers after a simulated delay; Model asks
// a large language model through pkg/ai. Both honour context cancellation, so
// a caller that has gone away never receives a late result.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoImage is returned when a diagnosis request carries no image data
	ErrNoImage = errors.New("image is required")
	// ErrUnsupportedImage is returned for non-image payloads
	ErrUnsupportedImage = errors.New("unsupported image type")
	// ErrImageTooLarge is returned when an image exceeds MaxImageBytes
	ErrImageTooLarge = errors.New("image too large")
	// ErrEmptyMessage is returned for blank chat messages
	ErrEmptyMessage = errors.New("message is required")
	// ErrAdvisorFailed marks a failure of the underlying model
	ErrAdvisorFailed = errors.New("advisor unavailable")
)

// MaxImageBytes bounds uploaded photos
const MaxImageBytes = 10 << 20

// Greeting is the assistant's opening line
const Greeting = "Hello! I'm your AI nutrition assistant. I can help you create personalized meal plans, provide nutritional advice, and suggest healthy recipes based on locally grown produce. What would you like to know about nutrition today?"

// Image is an uploaded crop photo
type Image struct {
	Data     []byte
	MIMEType string
	Filename string
}

// NewImage sniffs the MIME type when mimeType is empty or generic
func NewImage(data []byte, mimeType, filename string) Image {
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return Image{Data: data, MIMEType: mimeType, Filename: filename}
}

// Validate checks that the image is present, an image, and within size limits
func (img Image) Validate() error {
	if len(img.Data) == 0 {
		return ErrNoImage
	}
	if len(img.Data) > MaxImageBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrImageTooLarge, len(img.Data), MaxImageBytes)
	}
	if !strings.HasPrefix(img.MIMEType, "image/") {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, img.MIMEType)
	}
	return nil
}

// Diagnosis is the result of analysing a crop photo
type Diagnosis struct {
	Disease     string   `json:"disease"`
	Confidence  int      `json:"confidence"` // percent
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	Treatment   []string `json:"treatment"`
	Prevention  []string `json:"prevention"`
}

// Reply is the assistant's answer to one chat message
type Reply struct {
	Message string `json:"message"`
	Source  string `json:"source"` // canned or model
}

// Predictor diagnoses crop photos
type Predictor interface {
	Predict(ctx context.Context, img Image) (Diagnosis, error)
}

// Chatter answers nutrition questions
type Chatter interface {
	Chat(ctx context.Context, message string) (Reply, error)
}

// Advisor provides both capabilities
type Advisor interface {
	Predictor
	Chatter
}

// normalizeMessage trims a chat message and rejects blanks
func normalizeMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	return message, nil
}
