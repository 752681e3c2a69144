package agents

import (
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
)

// Set builds the supervisor and every routable specialist sharing the same options.
func Set(gen ports.TextGenerator, opts ...Option) map[domain.AgentID]domain.Agent {
	return map[domain.AgentID]domain.Agent{
		domain.Supervisor: NewSupervisor(gen, opts...),
		domain.Summarizer: NewSummarizer(gen, opts...),
		domain.Simplifier: NewSimplifier(gen, opts...),
		domain.Impact:     NewImpactAnalyst(gen, opts...),
		domain.Planner:    NewPlanner(gen, opts...),
		domain.General:    NewGeneral(gen, opts...),
	}
}
