package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
)

// Mask replaces every redacted span.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses, phone numbers, card or account
// numbers and US social security numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\b\d{3}-\d{2}-\d{4}\b`,
	`\b(?:\d[ -]?){13,19}\b`,
	`\+?\d{1,3}[ .-]?\(?\d{2,4}\)?[ .-]?\d{3,4}[ .-]?\d{3,4}\b`,
}

type piiMiddleware struct {
	next     ports.ThreadStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks spans of message contents
// matching the patterns before they are stored. Loads are passed through, so
// the redaction is permanent.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ThreadStore) ports.ThreadStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, id string, messages []domain.Message) error {
	// Copy so the caller's history keeps the original text.
	masked := make([]domain.Message, len(messages))
	for i, msg := range messages {
		masked[i] = domain.Message{Role: msg.Role, Content: m.mask(msg.Content)}
	}
	return m.next.Save(ctx, id, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, id string) ([]domain.Message, error) {
	return m.next.Load(ctx, id)
}

func (m *piiMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
