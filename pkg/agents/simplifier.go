package agents

import (
	"context"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
)

// Simplifier rewrites a text in plain language.
type Simplifier struct {
	specialist
}

// NewSimplifier creates the simplifier agent.
func NewSimplifier(gen ports.TextGenerator, opts ...Option) *Simplifier {
	return &Simplifier{specialist: newSpecialist(domain.Simplifier, gen, opts)}
}

// Execute rewrites the text in plain language and explains its jargon.
func (a *Simplifier) Execute(ctx context.Context, state domain.WorkflowState, _ domain.RunConfig) (domain.Update, error) {
	question, ok := EffectiveQuestion(state)
	if !ok {
		return missingQuestion(a.Fallback(state, domain.ErrMissingQuestion)), nil
	}

	raw, err := a.generate(ctx, a.promptData(state, question), true)
	if err != nil {
		return domain.Update{}, err
	}

	var resp struct {
		SimplifiedText string                 `json:"simplifiedText"`
		Glossary       []domain.GlossaryEntry `json:"glossary"`
	}
	if err := decodeJSON(raw, &resp); err != nil || strings.TrimSpace(resp.SimplifiedText) == "" {
		a.opts.logger.Debug("Simplifier response is not structured, using raw text", "error", err)
		resp.SimplifiedText = strings.TrimSpace(fencedBlock.ReplaceAllString(raw, ""))
		resp.Glossary = nil
	}

	var glossary []domain.GlossaryEntry
	for _, g := range resp.Glossary {
		if g.Term != "" && g.Definition != "" {
			glossary = append(glossary, g)
		}
	}

	return completed(domain.Update{Simplifier: &domain.SimplifiedOutput{
		SimplifiedText:   strings.TrimSpace(resp.SimplifiedText),
		Glossary:         glossary,
		ComplexityBefore: ComplexityScore(question),
		ComplexityAfter:  ComplexityScore(resp.SimplifiedText),
		Language:         a.language(state),
	}}), nil
}

// Fallback returns the apology with the original complexity on both sides.
func (a *Simplifier) Fallback(state domain.WorkflowState, _ error) domain.Update {
	source, _ := EffectiveQuestion(state)
	score := ComplexityScore(source)
	return domain.Update{Simplifier: &domain.SimplifiedOutput{
		SimplifiedText:   a.fallbackText(state),
		ComplexityBefore: score,
		ComplexityAfter:  score,
		Language:         a.language(state),
	}}
}
