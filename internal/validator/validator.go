package validator

import (
	"fmt"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
)

// ValidateGraph checks a compiled graph before it is shared by runs: every edge
// must lead to a registered agent or the end marker, every agent must be reachable
// from the start marker, and the end marker must be reachable from the entry.
func ValidateGraph(g *domain.Graph) error {
	if g == nil {
		return fmt.Errorf("%w: nil graph", domain.ErrInvalidGraph)
	}

	var errors []string

	for id, agent := range g.Agents {
		switch {
		case !id.IsAgent():
			errors = append(errors, fmt.Sprintf("Unknown agent id: '%s'", id))
		case agent == nil:
			errors = append(errors, fmt.Sprintf("Nil agent registered as '%s'", id))
		case agent.ID() != id:
			errors = append(errors, fmt.Sprintf("Agent '%s' registered as '%s'", agent.ID(), id))
		}
		if _, ok := g.Edges[id]; !ok {
			errors = append(errors, fmt.Sprintf("Agent '%s' has no outgoing edge", id))
		}
	}

	for from, edge := range g.Edges {
		if from != domain.Start {
			if _, ok := g.Agents[from]; !ok {
				errors = append(errors, fmt.Sprintf("Edge from missing agent: '%s'", from))
			}
		}
		if edge.Conditional() {
			if edge.To != "" {
				errors = append(errors, fmt.Sprintf("Edge from '%s' is both static and conditional", from))
			}
			if len(edge.Routes) == 0 {
				errors = append(errors, fmt.Sprintf("Conditional edge from '%s' has no routes", from))
			}
			if from == domain.Start {
				errors = append(errors, "Start edge must be static")
			}
		} else if edge.To == "" {
			errors = append(errors, fmt.Sprintf("Edge from '%s' has no target", from))
			continue
		}
		for _, to := range edge.Targets() {
			if to == domain.End {
				continue
			}
			if _, ok := g.Agents[to]; !ok {
				errors = append(errors, fmt.Sprintf("Missing node: '%s' (from '%s')", to, from))
			}
		}
	}

	for id := range g.Finals {
		if _, ok := g.Agents[id]; !ok {
			errors = append(errors, fmt.Sprintf("Final marker on missing agent: '%s'", id))
		}
	}

	start, ok := g.Edges[domain.Start]
	if !ok || start.To == "" || start.To == domain.End {
		errors = append(errors, "Start marker does not lead to an agent")
	} else {
		visited, endReachable := crawl(g, start.To)
		for _, id := range g.NodeIDs() {
			if !visited[id] {
				errors = append(errors, fmt.Sprintf("Unreachable agent: '%s'", id))
			}
		}
		if !endReachable {
			errors = append(errors, "End marker is unreachable")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%w: found %d errors:\n- %s", domain.ErrInvalidGraph, len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}

// crawl walks the graph breadth first from entry.
func crawl(g *domain.Graph, entry domain.AgentID) (map[domain.AgentID]bool, bool) {
	visited := make(map[domain.AgentID]bool)
	endReachable := false
	queue := []domain.AgentID{entry}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == domain.End {
			endReachable = true
			continue
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		edge, ok := g.Edges[current]
		if !ok {
			continue
		}
		for _, target := range edge.Targets() {
			if target != "" && !visited[target] {
				queue = append(queue, target)
			}
		}
	}
	return visited, endReachable
}
