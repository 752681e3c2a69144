package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
	openai "github.com/sashabaranov/go-openai"
)

var (
	_ ports.Embedder         = (*Client)(nil)
	_ ports.LanguageDetector = (*Client)(nil)
)

const detectPrompt = "Identify the language of the user's text. Answer with its ISO 639-1 code only."

// Embed returns one embedding per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
	}

	resp, err := retry(ctx, c, "embed", func(ctx context.Context) (openai.EmbeddingResponse, error) {
		return c.api.CreateEmbeddings(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding failed: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		out[idx] = d.Embedding
	}
	return out, nil
}

// Detect asks the chat model for the ISO 639-1 code of text.
func (c *Client) Detect(ctx context.Context, text string) (string, error) {
	completion, err := c.Generate(ctx, ports.CompletionRequest{
		System:    detectPrompt,
		Messages:  []domain.Message{domain.UserMessage(text)},
		MaxTokens: 5,
	})
	if err != nil {
		return "", err
	}

	code := strings.ToLower(strings.Trim(strings.TrimSpace(completion.Content), `."'`))
	if len(code) < 2 {
		return "", fmt.Errorf("unrecognized language code %q", completion.Content)
	}
	return code[:2], nil
}
