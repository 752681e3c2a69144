package agents

import (
	"context"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
)

// General answers anything the specialists do not cover. With a Retriever it
// grounds the answer on knowledge passages and cites them as sources.
type General struct {
	specialist
}

// NewGeneral creates the general agent.
func NewGeneral(gen ports.TextGenerator, opts ...Option) *General {
	return &General{specialist: newSpecialist(domain.General, gen, opts)}
}

// Execute answers the question, grounded on retrieved passages when a retriever is set.
func (a *General) Execute(ctx context.Context, state domain.WorkflowState, _ domain.RunConfig) (domain.Update, error) {
	question, ok := EffectiveQuestion(state)
	if !ok {
		return missingQuestion(a.Fallback(state, domain.ErrMissingQuestion)), nil
	}

	data := a.promptData(state, question)
	if a.opts.retriever != nil {
		passages, err := a.opts.retriever.Search(ctx, question, a.opts.topK)
		if err != nil {
			// Retrieval is best effort; the answer degrades to ungrounded.
			a.opts.logger.Warn("Knowledge search failed", "error", err)
		}
		data.Passages = passages
	}

	raw, err := a.generate(ctx, data, false)
	if err != nil {
		return domain.Update{}, err
	}

	answer := strings.TrimSpace(raw)
	if answer == "" {
		return domain.Update{}, errEmptyResponse
	}

	var sources []domain.Source
	for _, p := range data.Passages {
		sources = append(sources, domain.Source{ID: p.ID, Title: p.Title, Score: p.Score})
	}

	return completed(domain.Update{General: &domain.GeneralOutput{
		Answer:   answer,
		Sources:  sources,
		Language: a.language(state),
	}}), nil
}

// Fallback returns the localized apology answer.
func (a *General) Fallback(state domain.WorkflowState, _ error) domain.Update {
	return domain.Update{General: &domain.GeneralOutput{
		Answer:   a.fallbackText(state),
		Language: a.language(state),
	}}
}
