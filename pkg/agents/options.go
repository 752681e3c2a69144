package agents

import (
	"log/slog"

	"github.com/civicchat/orchestra/internal/logging"
	"github.com/civicchat/orchestra/pkg/ports"
)

// MaxKeyPoints caps the key points returned by the summarizer.
const MaxKeyPoints = 5

type options struct {
	prompts         *Prompts
	defaultLanguage string
	temperature     float32
	maxTokens       int
	logger          *slog.Logger
	detector        ports.LanguageDetector
	retriever       ports.Retriever
	topK            int
	supported       []string
}

// Option configures an agent.
type Option func(*options)

// WithPrompts replaces the embedded prompt set.
func WithPrompts(p *Prompts) Option {
	return func(o *options) {
		o.prompts = p
	}
}

// WithDefaultLanguage sets the language used when neither the request nor the
// detector provides one.
func WithDefaultLanguage(lang string) Option {
	return func(o *options) {
		o.defaultLanguage = lang
	}
}

// WithSupportedLanguages restricts detected languages; anything else collapses to
// the default language.
func WithSupportedLanguages(langs ...string) Option {
	return func(o *options) {
		o.supported = langs
	}
}

// WithTemperature sets the sampling temperature of generation calls.
func WithTemperature(t float32) Option {
	return func(o *options) {
		o.temperature = t
	}
}

// WithMaxTokens bounds the completion length.
func WithMaxTokens(n int) Option {
	return func(o *options) {
		o.maxTokens = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLanguageDetector is used by the supervisor when the request has no language.
func WithLanguageDetector(d ports.LanguageDetector) Option {
	return func(o *options) {
		o.detector = d
	}
}

// WithRetriever grounds the general agent on knowledge passages.
func WithRetriever(r ports.Retriever, topK int) Option {
	return func(o *options) {
		o.retriever = r
		o.topK = topK
	}
}

func newOptions(opts []Option) options {
	o := options{
		defaultLanguage: "en",
		temperature:     0.2,
		topK:            3,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.prompts == nil {
		o.prompts = DefaultPrompts()
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	return o
}
