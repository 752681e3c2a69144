package ports

import (
	"context"
	"iter"

	"github.com/civicchat/orchestra/pkg/domain"
)

// Workflow is the execution surface consumed by transports (HTTP, MCP, CLI).
// target selects the graph: domain.Supervisor runs the routed workflow, a
// routable agent id runs that agent alone.
type Workflow interface {
	// Invoke runs the graph to completion and returns the final merged state.
	Invoke(ctx context.Context, target domain.AgentID, state domain.WorkflowState, cfg domain.RunConfig) (domain.WorkflowState, error)

	// Stream runs the graph and yields one chunk per completed agent. The final
	// merged state is delivered to onDone once the sequence is exhausted.
	Stream(ctx context.Context, target domain.AgentID, state domain.WorkflowState, cfg domain.RunConfig, onDone func(domain.WorkflowState)) iter.Seq[domain.StreamChunk]
}
