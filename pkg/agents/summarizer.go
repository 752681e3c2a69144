package agents

import (
	"context"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
)

// Summarizer condenses a text into a summary and a few key points.
type Summarizer struct {
	specialist
}

// NewSummarizer creates the summarizer agent.
func NewSummarizer(gen ports.TextGenerator, opts ...Option) *Summarizer {
	return &Summarizer{specialist: newSpecialist(domain.Summarizer, gen, opts)}
}

// Execute summarizes the question text.
func (a *Summarizer) Execute(ctx context.Context, state domain.WorkflowState, _ domain.RunConfig) (domain.Update, error) {
	question, ok := EffectiveQuestion(state)
	if !ok {
		return missingQuestion(a.Fallback(state, domain.ErrMissingQuestion)), nil
	}

	raw, err := a.generate(ctx, a.promptData(state, question), true)
	if err != nil {
		return domain.Update{}, err
	}
	return completed(domain.Update{Summarizer: a.parse(raw, question, a.language(state))}), nil
}

func (a *Summarizer) parse(raw, source, lang string) *domain.SummaryOutput {
	var resp struct {
		Summary   string   `json:"summary"`
		KeyPoints []string `json:"keyPoints"`
	}
	if err := decodeJSON(raw, &resp); err != nil || strings.TrimSpace(resp.Summary) == "" {
		a.opts.logger.Debug("Summarizer response is not structured, extracting heuristically", "error", err)
		resp.Summary = prose(raw)
		resp.KeyPoints = listItems(raw)
	}
	if len(resp.KeyPoints) == 0 {
		resp.KeyPoints = ExtractKeyPoints(source, MaxKeyPoints)
	}
	return &domain.SummaryOutput{
		Summary:         strings.TrimSpace(resp.Summary),
		KeyPoints:       capPoints(resp.KeyPoints),
		ComplexityScore: ComplexityScore(source),
		Language:        lang,
	}
}

// Fallback keeps the locally computable parts of a summary.
func (a *Summarizer) Fallback(state domain.WorkflowState, _ error) domain.Update {
	source, _ := EffectiveQuestion(state)
	return domain.Update{Summarizer: &domain.SummaryOutput{
		Summary:         a.fallbackText(state),
		KeyPoints:       capPoints(ExtractKeyPoints(source, MaxKeyPoints)),
		ComplexityScore: ComplexityScore(source),
		Language:        a.language(state),
	}}
}

func capPoints(points []string) []string {
	out := make([]string, 0, min(len(points), MaxKeyPoints))
	for _, p := range points {
		if p = strings.TrimSpace(p); p != "" && len(out) < MaxKeyPoints {
			out = append(out, p)
		}
	}
	return out
}
