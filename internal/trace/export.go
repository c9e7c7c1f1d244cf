package trace

import (
	"fmt"
	"strings"
)

// NodeLinkGraph is the node-link JSON export shape consumed by external
// tooling (networkx-compatible).
type NodeLinkGraph struct {
	Directed   bool                   `json:"directed"`
	Multigraph bool                   `json:"multigraph"`
	Graph      map[string]interface{} `json:"graph"`
	Nodes      []NodeLinkNode         `json:"nodes"`
	Links      []NodeLinkLink         `json:"links"`
}

// NodeLinkNode is one exported node entry.
type NodeLinkNode struct {
	ID        string                 `json:"id"`
	NodeType  string                 `json:"node_type"`
	Content   string                 `json:"content"`
	Confidence float64               `json:"confidence"`
	Reason    string                 `json:"reason,omitempty"`
	CreatedAt string                 `json:"created_at"`
	IsRoot    bool                   `json:"is_root"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NodeLinkLink is one exported edge entry.
type NodeLinkLink struct {
	Source    string                 `json:"source"`
	Target    string                 `json:"target"`
	Label     string                 `json:"label"`
	Weight    float64                `json:"weight"`
	CreatedAt string                 `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ToNodeLinkGraph exports the trace as a networkx-compatible node-link
// graph. Export shape never affects trace semantics.
func (t *ReasoningTrace) ToNodeLinkGraph() *NodeLinkGraph {
	g := &NodeLinkGraph{
		Directed:   true,
		Multigraph: false,
		Graph: map[string]interface{}{
			"trace_id":   t.ID,
			"session_id": t.SessionID,
			"created_at": t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
	}
	if t.GitCommit != "" {
		g.Graph["git_commit"] = t.GitCommit
	}
	if t.GitBranch != "" {
		g.Graph["git_branch"] = t.GitBranch
	}

	for _, n := range t.Nodes {
		g.Nodes = append(g.Nodes, NodeLinkNode{
			ID:         n.ID,
			NodeType:   string(n.Type),
			Content:    n.Content,
			Confidence: n.Confidence,
			Reason:     n.Reason,
			CreatedAt:  n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			IsRoot:     n.ID == t.RootGoal,
			Metadata:   n.Metadata,
		})
	}
	for _, e := range t.Edges {
		g.Links = append(g.Links, NodeLinkLink{
			Source: e.From,
			Target: e.To,
			Label:  string(e.Label),
			Weight: e.Weight,
		})
	}
	return g
}

func mermaidShape(t NodeType) (string, string) {
	switch t {
	case NodeGoal:
		return "([", "])"
	case NodeDecision:
		return "{{", "}}"
	case NodeOption:
		return "[", "]"
	case NodeAction:
		return "[/", "/]"
	case NodeOutcome:
		return "[(", ")]"
	default:
		return "[", "]"
	}
}

func truncateLabel(s string, max int) string {
	r := []rune(strings.ReplaceAll(s, `"`, "'"))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max]) + "..."
}

// ToMermaidEnhanced renders the trace as a Mermaid flowchart.
func (t *ReasoningTrace) ToMermaidEnhanced() string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	for _, n := range t.Nodes {
		open, close := mermaidShape(n.Type)
		b.WriteString(fmt.Sprintf("  %s%s%q%s\n", n.ID, open, truncateLabel(n.Content, 50), close))
	}
	for _, e := range t.Edges {
		b.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", e.From, e.Label, e.To))
	}
	return b.String()
}

// ToDot renders the trace as a Graphviz DOT digraph.
func (t *ReasoningTrace) ToDot() string {
	var b strings.Builder
	b.WriteString("digraph trace {\n")
	for _, n := range t.Nodes {
		b.WriteString(fmt.Sprintf("  %q [label=%q];\n", n.ID, truncateLabel(n.Content, 60)))
	}
	for _, e := range t.Edges {
		b.WriteString(fmt.Sprintf("  %q -> %q [label=%q];\n", e.From, e.To, e.Label))
	}
	b.WriteString("}\n")
	return b.String()
}

// HTMLConfig configures ToHTML's export.
type HTMLConfig struct {
	Title string
}

// ToHTML renders a minimal standalone HTML page embedding the Mermaid
// diagram for offline viewing.
func (t *ReasoningTrace) ToHTML(cfg HTMLConfig) string {
	title := cfg.Title
	if title == "" {
		title = "Reasoning Trace " + t.ID
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>%s</title>
<script src="https://cdn.jsdelivr.net/npm/mermaid/dist/mermaid.min.js"></script>
</head><body>
<pre class="mermaid">
%s
</pre>
<script>mermaid.initialize({startOnLoad:true});</script>
</body></html>`, title, t.ToMermaidEnhanced())
}
