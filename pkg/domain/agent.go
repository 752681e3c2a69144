package domain

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// AgentID identifies a node of the workflow graph.
// The set is closed: only the constants below are valid identifiers.
type AgentID string

const (
	// Start is the graph entry marker. It never executes.
	Start AgentID = "__start__"
	// End is the terminal marker. Reaching it stops the run.
	End AgentID = "__end__"

	Supervisor AgentID = "supervisor"
	Summarizer AgentID = "summarizer"
	Simplifier AgentID = "simplifier"
	Impact     AgentID = "impact"
	Planner    AgentID = "planner"
	General    AgentID = "general"
)

// routable lists the agents the supervisor may dispatch to, in prompt order.
var routable = []AgentID{Summarizer, Impact, Simplifier, Planner, General}

// RoutableAgents returns the agents a supervisor may route to.
func RoutableAgents() []AgentID {
	return slices.Clone(routable)
}

// RoutableNames returns RoutableAgents as plain strings, for classifier enums.
func RoutableNames() []string {
	names := make([]string, len(routable))
	for i, id := range routable {
		names[i] = string(id)
	}
	return names
}

// ParseAgentID normalizes s and maps it onto the closed agent set.
// Sentinels are not accepted.
func ParseAgentID(s string) (AgentID, error) {
	id := AgentID(strings.ToLower(strings.TrimSpace(s)))
	if id.IsAgent() {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAgent, s)
}

// IsAgent reports whether id names an executable agent (not a sentinel).
func (id AgentID) IsAgent() bool {
	return id == Supervisor || id.Routable()
}

// Routable reports whether id is a valid supervisor routing target.
func (id AgentID) Routable() bool {
	return slices.Contains(routable, id)
}

// IsSentinel reports whether id is the start or end marker.
func (id AgentID) IsSentinel() bool {
	return id == Start || id == End
}

func (id AgentID) String() string {
	return string(id)
}

// RunConfig carries per-invocation metadata to agents. It never holds agent state.
type RunConfig struct {
	RunID           string
	ThreadID        string
	CallerID        string
	DefaultLanguage string
}

// Agent is a stateless unit that transforms the workflow state.
// Execute returns the partial update to merge; a returned error is converted by
// the executor into an error update and never escapes the run.
type Agent interface {
	ID() AgentID
	Execute(ctx context.Context, state WorkflowState, cfg RunConfig) (Update, error)
}

// FallbackProvider is implemented by agents that can shape a well-formed output
// when their execution fails, so callers always receive the expected payload.
type FallbackProvider interface {
	Fallback(state WorkflowState, cause error) Update
}

// AgentFunc adapts a plain function to the Agent interface.
type AgentFunc struct {
	id AgentID
	fn func(ctx context.Context, state WorkflowState, cfg RunConfig) (Update, error)
}

// NewAgent wraps fn as an Agent with the given identifier.
func NewAgent(id AgentID, fn func(ctx context.Context, state WorkflowState, cfg RunConfig) (Update, error)) *AgentFunc {
	return &AgentFunc{id: id, fn: fn}
}

// ID returns the agent identifier.
func (a *AgentFunc) ID() AgentID {
	return a.id
}

// Execute calls the wrapped function.
func (a *AgentFunc) Execute(ctx context.Context, state WorkflowState, cfg RunConfig) (Update, error) {
	return a.fn(ctx, state, cfg)
}
