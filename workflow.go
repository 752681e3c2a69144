package orchestra

import (
	"fmt"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/dsl"
)

// WorkflowAlias is accepted wherever a target names the routed workflow.
const WorkflowAlias = "workflow"

// ParseTarget maps a transport supplied name onto a graph target.
// "workflow" is an alias of the supervisor.
func ParseTarget(name string) (domain.AgentID, error) {
	if name == WorkflowAlias {
		return domain.Supervisor, nil
	}
	return domain.ParseAgentID(name)
}

// selectNext routes on the key written by the supervisor.
func selectNext(s domain.WorkflowState) string {
	return string(s.Next)
}

// WorkflowGraph wires the routed workflow:
// start -> supervisor -> (next) -> agent -> end.
// Every routable agent present in agents becomes a branch and a final node.
func WorkflowGraph(agents map[domain.AgentID]domain.Agent) (*domain.Graph, error) {
	sup, ok := agents[domain.Supervisor]
	if !ok {
		return nil, fmt.Errorf("%w: workflow requires the %s agent", domain.ErrInvalidGraph, domain.Supervisor)
	}

	b := dsl.New(WorkflowAlias)
	b.Start(domain.Supervisor)
	node := b.Add(sup).When(selectNext)

	branches := 0
	for _, id := range domain.RoutableAgents() {
		agent, ok := agents[id]
		if !ok {
			continue
		}
		node.Branch(string(id), id)
		b.Add(agent).Go(domain.End).Final()
		branches++
	}
	if branches == 0 {
		return nil, fmt.Errorf("%w: workflow has no routable agents", domain.ErrInvalidGraph)
	}
	return b.Build()
}

// SingleAgentGraph wires start -> agent -> end.
func SingleAgentGraph(agent domain.Agent) (*domain.Graph, error) {
	if agent == nil {
		return nil, fmt.Errorf("%w: nil agent", domain.ErrInvalidGraph)
	}
	b := dsl.New(string(agent.ID()))
	b.Start(agent.ID())
	b.Add(agent).Go(domain.End).Final()
	return b.Build()
}
