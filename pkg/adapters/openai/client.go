// Package openai adapts OpenAI-compatible chat and embedding APIs to the
// text generation, embedding and language detection ports.
package openai

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/civicchat/orchestra/internal/logging"
	openai "github.com/sashabaranov/go-openai"
)

// API is the subset of the go-openai client used by the adapter.
// *openai.Client satisfies it; tests substitute a fake.
type API interface {
	CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(context.Context, openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Config describes the upstream service.
type Config struct {
	// BaseURL overrides the API endpoint, for OpenAI-compatible servers.
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	// Timeout bounds each HTTP call. Zero means no limit.
	Timeout time.Duration
	Retry   RetryPolicy
}

// Client implements ports.TextGenerator, ports.Embedder and ports.LanguageDetector.
type Client struct {
	api    API
	cfg    Config
	logger *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAPI replaces the go-openai client.
func WithAPI(api API) Option {
	return func(c *Client) {
		c.api = api
	}
}

// New creates a client for cfg.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	cfg.Retry = cfg.Retry.withDefaults()

	c := &Client{
		cfg:    cfg,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.api == nil {
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		c.api = openai.NewClientWithConfig(oc)
	}
	return c
}

// Model returns the chat model in use.
func (c *Client) Model() string {
	return c.cfg.Model
}
