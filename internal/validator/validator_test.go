package validator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/civicchat/orchestra/pkg/domain"
)

func noop(id domain.AgentID) domain.Agent {
	return domain.NewAgent(id, func(context.Context, domain.WorkflowState, domain.RunConfig) (domain.Update, error) {
		return domain.Update{}, nil
	})
}

func routed() *domain.Graph {
	return &domain.Graph{
		Agents: map[domain.AgentID]domain.Agent{
			domain.Supervisor: noop(domain.Supervisor),
			domain.General:    noop(domain.General),
			domain.Planner:    noop(domain.Planner),
		},
		Edges: map[domain.AgentID]domain.Edge{
			domain.Start: {From: domain.Start, To: domain.Supervisor},
			domain.Supervisor: {
				From:     domain.Supervisor,
				Selector: func(s domain.WorkflowState) string { return string(s.Next) },
				Routes:   map[string]domain.AgentID{"general": domain.General, "planner": domain.Planner},
			},
			domain.General: {From: domain.General, To: domain.End},
			domain.Planner: {From: domain.Planner, To: domain.End},
		},
		Finals: map[domain.AgentID]bool{domain.General: true, domain.Planner: true},
	}
}

func TestValidateGraph(t *testing.T) {
	// Scenario A: valid routed graph
	if err := ValidateGraph(routed()); err != nil {
		t.Errorf("Scenario A (Valid) failed: %v", err)
	}

	// Scenario B: broken link
	g := routed()
	g.Edges[domain.Planner] = domain.Edge{From: domain.Planner, To: domain.Impact}
	err := ValidateGraph(g)
	if err == nil {
		t.Fatal("Scenario B (Broken) should have failed, but got nil")
	}
	if !errors.Is(err, domain.ErrInvalidGraph) {
		t.Errorf("Expected ErrInvalidGraph, got: %v", err)
	}
	if !strings.Contains(err.Error(), "Missing node: 'impact'") {
		t.Errorf("Expected 'Missing node' error, got: %v", err)
	}
}

func TestValidateGraph_Unreachable(t *testing.T) {
	g := routed()
	g.Agents[domain.Impact] = noop(domain.Impact)
	g.Edges[domain.Impact] = domain.Edge{From: domain.Impact, To: domain.End}

	err := ValidateGraph(g)
	if err == nil || !strings.Contains(err.Error(), "Unreachable agent: 'impact'") {
		t.Errorf("Expected unreachable agent error, got: %v", err)
	}
}

func TestValidateGraph_EndUnreachable(t *testing.T) {
	g := routed()
	g.Edges[domain.General] = domain.Edge{From: domain.General, To: domain.Supervisor}
	g.Edges[domain.Planner] = domain.Edge{From: domain.Planner, To: domain.Supervisor}

	err := ValidateGraph(g)
	if err == nil || !strings.Contains(err.Error(), "End marker is unreachable") {
		t.Errorf("Expected end unreachable error, got: %v", err)
	}
}

func TestValidateGraph_Misregistered(t *testing.T) {
	g := routed()
	g.Agents[domain.Planner] = noop(domain.General)

	err := ValidateGraph(g)
	if err == nil || !strings.Contains(err.Error(), "Agent 'general' registered as 'planner'") {
		t.Errorf("Expected registration error, got: %v", err)
	}
}

func TestValidateGraph_MissingStart(t *testing.T) {
	g := routed()
	delete(g.Edges, domain.Start)

	if err := ValidateGraph(g); err == nil {
		t.Error("Expected error for graph without start edge")
	}
	if err := ValidateGraph(nil); !errors.Is(err, domain.ErrInvalidGraph) {
		t.Errorf("Expected ErrInvalidGraph for nil graph, got: %v", err)
	}
}
