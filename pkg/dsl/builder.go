package dsl

import (
	"errors"
	"fmt"
	"maps"

	"github.com/civicchat/orchestra/internal/validator"
	"github.com/civicchat/orchestra/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	name  string
	entry domain.AgentID
	nodes map[domain.AgentID]*NodeBuilder
	order []domain.AgentID
	errs  []error
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[domain.AgentID]*NodeBuilder),
	}
}

// Start sets the first agent, reached from the start marker.
func (b *Builder) Start(id domain.AgentID) *Builder {
	b.entry = id
	return b
}

// Add registers an agent in the graph.
// If the agent id already exists, it returns the existing builder.
func (b *Builder) Add(agent domain.Agent) *NodeBuilder {
	if agent == nil {
		b.errs = append(b.errs, errors.New("nil agent"))
		return &NodeBuilder{builder: b}
	}
	id := agent.ID()
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		agent:   agent,
		edge:    domain.Edge{From: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build compiles and validates the graph.
func (b *Builder) Build() (*domain.Graph, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidGraph, err)
	}

	g := &domain.Graph{
		Name:   b.name,
		Agents: make(map[domain.AgentID]domain.Agent, len(b.nodes)),
		Edges:  make(map[domain.AgentID]domain.Edge, len(b.nodes)+1),
		Finals: make(map[domain.AgentID]bool),
	}
	g.Edges[domain.Start] = domain.Edge{From: domain.Start, To: b.entry}

	for _, id := range b.order {
		nb := b.nodes[id]
		g.Agents[id] = nb.agent
		if nb.hasEdge {
			edge := nb.edge
			if edge.Routes != nil {
				edge.Routes = maps.Clone(edge.Routes)
			}
			g.Edges[id] = edge
		}
		if nb.final {
			g.Finals[id] = true
		}
	}

	if err := validator.ValidateGraph(g); err != nil {
		return nil, err
	}
	return g, nil
}

// MustBuild is Build for graphs declared at init time.
func (b *Builder) MustBuild() *domain.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
