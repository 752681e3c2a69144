package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
)

// Overlay contains run data to visualize on the graph.
type Overlay struct {
	Visited []domain.AgentID
	Current domain.AgentID
}

// GenerateMermaid produces a Mermaid flowchart for g.
// It applies semantic styling:
// - Start/End markers: ((Circle))
// - Supervisor: {Rhombus}
// - Final agents: [[Subroutine]]
// - Default: [Rectangle]
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(g *domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if g == nil {
		return sb.String()
	}

	ids := append([]domain.AgentID{domain.Start}, g.NodeIDs()...)
	ids = append(ids, domain.End)
	for _, id := range ids {
		opener, closer := "[", "]"
		switch {
		case id.IsSentinel():
			opener, closer = "((", "))"
		case id == domain.Supervisor:
			opener, closer = "{", "}"
		case g.IsFinal(id):
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(id), opener, label(id), closer)
	}

	for _, from := range ids {
		edge, ok := g.Edges[from]
		if !ok {
			continue
		}
		safeFrom := sanitizeMermaidID(from)
		if !edge.Conditional() {
			fmt.Fprintf(&sb, "    %s --> %s\n", safeFrom, sanitizeMermaidID(edge.To))
			continue
		}
		keys := make([]string, 0, len(edge.Routes))
		for k := range edge.Routes {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			safeKey := strings.ReplaceAll(k, "\"", "'")
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeFrom, safeKey, sanitizeMermaidID(edge.Routes[k]))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on light fills, regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.AgentID]bool)
		for _, id := range overlay.Visited {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", sanitizeMermaidID(id))
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
		}
	}

	return sb.String()
}

func label(id domain.AgentID) string {
	switch id {
	case domain.Start:
		return "start"
	case domain.End:
		return "end"
	}
	return string(id)
}

// sanitizeMermaidID maps the sentinel markers onto ids Mermaid accepts.
func sanitizeMermaidID(id domain.AgentID) string {
	s := strings.Trim(string(id), "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	if s == "end" {
		// "end" is a reserved word in flowcharts.
		s = "finish"
	}
	return s
}
