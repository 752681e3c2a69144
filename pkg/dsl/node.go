package dsl

import (
	"fmt"

	"github.com/civicchat/orchestra/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring the outgoing edge of an agent.
type NodeBuilder struct {
	agent   domain.Agent
	edge    domain.Edge
	hasEdge bool
	final   bool
	builder *Builder
}

// Go adds an unconditional transition to the target agent (or domain.End).
func (n *NodeBuilder) Go(target domain.AgentID) *NodeBuilder {
	if n.edge.Selector != nil {
		n.fail("static edge after conditional edge")
	}
	n.edge.To = target
	n.hasEdge = true
	return n
}

// When makes the outgoing edge conditional: sel is evaluated on the merged state
// after the agent ran and its result is looked up among the branches.
func (n *NodeBuilder) When(sel domain.Selector) *NodeBuilder {
	if n.edge.To != "" {
		n.fail("conditional edge after static edge")
	}
	n.edge.Selector = sel
	n.hasEdge = true
	return n
}

// Branch maps a selector key onto a target agent (or domain.End).
func (n *NodeBuilder) Branch(key string, target domain.AgentID) *NodeBuilder {
	if n.edge.Routes == nil {
		n.edge.Routes = make(map[string]domain.AgentID)
	}
	n.edge.Routes[key] = target
	return n
}

// Final marks the agent as a response producing node.
func (n *NodeBuilder) Final() *NodeBuilder {
	n.final = true
	return n
}

func (n *NodeBuilder) fail(msg string) {
	id := domain.AgentID("")
	if n.agent != nil {
		id = n.agent.ID()
	}
	n.builder.errs = append(n.builder.errs, fmt.Errorf("agent '%s': %s", id, msg))
}
