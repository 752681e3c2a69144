package agents

import (
	"context"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
)

// ImpactAnalyst explains how a policy or decision affects residents.
type ImpactAnalyst struct {
	specialist
}

// NewImpactAnalyst creates the impact agent.
func NewImpactAnalyst(gen ports.TextGenerator, opts ...Option) *ImpactAnalyst {
	return &ImpactAnalyst{specialist: newSpecialist(domain.Impact, gen, opts)}
}

// Execute assesses who and what a measure affects.
func (a *ImpactAnalyst) Execute(ctx context.Context, state domain.WorkflowState, _ domain.RunConfig) (domain.Update, error) {
	question, ok := EffectiveQuestion(state)
	if !ok {
		return missingQuestion(a.Fallback(state, domain.ErrMissingQuestion)), nil
	}

	raw, err := a.generate(ctx, a.promptData(state, question), true)
	if err != nil {
		return domain.Update{}, err
	}

	var resp struct {
		Overview        string              `json:"overview"`
		Areas           []domain.ImpactArea `json:"areas"`
		Recommendations []string            `json:"recommendations"`
	}
	if err := decodeJSON(raw, &resp); err != nil || strings.TrimSpace(resp.Overview) == "" {
		a.opts.logger.Debug("Impact response is not structured, extracting heuristically", "error", err)
		resp.Overview = prose(raw)
		resp.Areas = nil
		resp.Recommendations = listItems(raw)
	}

	areas := make([]domain.ImpactArea, 0, len(resp.Areas))
	for _, area := range resp.Areas {
		if area.Area == "" {
			continue
		}
		area.Severity = normalizeSeverity(area.Severity)
		areas = append(areas, area)
	}

	return completed(domain.Update{Impact: &domain.ImpactOutput{
		Overview:        strings.TrimSpace(resp.Overview),
		Areas:           areas,
		Recommendations: resp.Recommendations,
		Language:        a.language(state),
	}}), nil
}

// Fallback returns a localized overview without impact areas.
func (a *ImpactAnalyst) Fallback(state domain.WorkflowState, _ error) domain.Update {
	return domain.Update{Impact: &domain.ImpactOutput{
		Overview: a.fallbackText(state),
		Areas:    []domain.ImpactArea{},
		Language: a.language(state),
	}}
}

func normalizeSeverity(s domain.Severity) domain.Severity {
	switch domain.Severity(strings.ToLower(strings.TrimSpace(string(s)))) {
	case domain.SeverityLow:
		return domain.SeverityLow
	case domain.SeverityHigh:
		return domain.SeverityHigh
	}
	return domain.SeverityMedium
}
