package ports

import (
	"context"

	"github.com/civicchat/orchestra/pkg/domain"
)

// CompletionRequest is a chat completion call to the text generation service.
type CompletionRequest struct {
	// System is the instruction prompt, sent ahead of Messages.
	System   string
	Messages []domain.Message
	// JSON asks the backend for a JSON object response.
	JSON        bool
	Temperature float32
	MaxTokens   int
}

// Completion is the generated text.
type Completion struct {
	Content string
	Model   string
}

// ClassificationRequest asks the backend to pick exactly one of Options.
type ClassificationRequest struct {
	System      string
	Input       string
	Options     []string
	Description string
}

// TextGenerator is the text generation service.
type TextGenerator interface {
	Generate(ctx context.Context, req CompletionRequest) (Completion, error)

	// Classify returns one value of req.Options. The choice is structurally constrained
	// by the backend (schema validated enum), never parsed from free text.
	Classify(ctx context.Context, req ClassificationRequest) (string, error)
}

// LanguageDetector maps text onto an ISO 639-1 language code.
type LanguageDetector interface {
	Detect(ctx context.Context, text string) (string, error)
}
