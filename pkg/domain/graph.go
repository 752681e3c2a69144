package domain

import "slices"

// Selector inspects the merged state after an agent ran and returns an edge key.
type Selector func(state WorkflowState) string

// Edge is the outgoing transition of a node.
// A static edge has To set; a conditional edge has Selector and Routes set.
type Edge struct {
	From     AgentID
	To       AgentID
	Selector Selector
	Routes   map[string]AgentID
}

// Conditional reports whether the edge is resolved by a selector.
func (e Edge) Conditional() bool {
	return e.Selector != nil
}

// Targets returns every node the edge can lead to, sorted.
func (e Edge) Targets() []AgentID {
	if !e.Conditional() {
		return []AgentID{e.To}
	}
	seen := make(map[AgentID]bool, len(e.Routes))
	var out []AgentID
	for _, to := range e.Routes {
		if !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	slices.Sort(out)
	return out
}

// Graph is a compiled workflow: agents keyed by id plus one outgoing edge per node.
// It is built once and shared by every run; executors never mutate it.
type Graph struct {
	Name   string
	Agents map[AgentID]Agent
	Edges  map[AgentID]Edge
	// Finals marks agents whose completion produces the user facing response.
	Finals map[AgentID]bool
}

// Entry returns the first agent, reached from the Start marker.
func (g *Graph) Entry() AgentID {
	return g.Edges[Start].To
}

// Agent looks up a registered agent.
func (g *Graph) Agent(id AgentID) (Agent, bool) {
	a, ok := g.Agents[id]
	return a, ok
}

// IsFinal reports whether id is a designated response producing agent.
func (g *Graph) IsFinal(id AgentID) bool {
	return g.Finals[id]
}

// NodeIDs returns the registered agent ids, sorted.
func (g *Graph) NodeIDs() []AgentID {
	ids := make([]AgentID, 0, len(g.Agents))
	for id := range g.Agents {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
