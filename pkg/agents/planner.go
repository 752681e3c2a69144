package agents

import (
	"context"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
)

// Planner breaks a civic goal into ordered steps.
type Planner struct {
	specialist
}

// NewPlanner creates the planner agent.
func NewPlanner(gen ports.TextGenerator, opts ...Option) *Planner {
	return &Planner{specialist: newSpecialist(domain.Planner, gen, opts)}
}

// Execute turns the request into an ordered action plan.
func (a *Planner) Execute(ctx context.Context, state domain.WorkflowState, _ domain.RunConfig) (domain.Update, error) {
	question, ok := EffectiveQuestion(state)
	if !ok {
		return missingQuestion(a.Fallback(state, domain.ErrMissingQuestion)), nil
	}

	raw, err := a.generate(ctx, a.promptData(state, question), true)
	if err != nil {
		return domain.Update{}, err
	}

	var resp struct {
		Goal  string            `json:"goal"`
		Steps []domain.PlanStep `json:"steps"`
	}
	if err := decodeJSON(raw, &resp); err != nil || len(resp.Steps) == 0 {
		a.opts.logger.Debug("Planner response is not structured, extracting list items", "error", err)
		resp.Steps = resp.Steps[:0]
		for _, item := range listItems(raw) {
			title, desc, _ := strings.Cut(item, ": ")
			resp.Steps = append(resp.Steps, domain.PlanStep{Title: title, Description: desc})
		}
	}
	if strings.TrimSpace(resp.Goal) == "" {
		resp.Goal = question
	}

	steps := make([]domain.PlanStep, 0, len(resp.Steps))
	for _, s := range resp.Steps {
		if s.Title == "" {
			continue
		}
		s.Order = len(steps) + 1
		steps = append(steps, s)
	}

	return completed(domain.Update{Planner: &domain.PlanOutput{
		Goal:     strings.TrimSpace(resp.Goal),
		Steps:    steps,
		Language: a.language(state),
	}}), nil
}

// Fallback returns a localized plan with no steps.
func (a *Planner) Fallback(state domain.WorkflowState, _ error) domain.Update {
	return domain.Update{Planner: &domain.PlanOutput{
		Goal:     a.fallbackText(state),
		Steps:    []domain.PlanStep{},
		Language: a.language(state),
	}}
}
