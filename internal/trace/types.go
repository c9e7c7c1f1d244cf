// Package trace implements the reasoning-trace core: a decision DAG
// (goal -> decision -> option -> action -> outcome -> observation) built
// in-memory and round-tripped through the hypergraph memory store.
package trace

import "time"

// NodeType classifies a DecisionNode.
type NodeType string

const (
	NodeGoal        NodeType = "goal"
	NodeDecision    NodeType = "decision"
	NodeOption      NodeType = "option"
	NodeAction      NodeType = "action"
	NodeOutcome     NodeType = "outcome"
	NodeObservation NodeType = "observation"
)

// EdgeLabel classifies a TraceEdge.
type EdgeLabel string

const (
	LabelSpawns     EdgeLabel = "spawns"
	LabelConsiders  EdgeLabel = "considers"
	LabelChooses    EdgeLabel = "chooses"
	LabelRejects    EdgeLabel = "rejects"
	LabelImplements EdgeLabel = "implements"
	LabelProduces   EdgeLabel = "produces"
	LabelLeadsTo    EdgeLabel = "leads_to"
	LabelReferences EdgeLabel = "references"
	LabelRequires   EdgeLabel = "requires"
	LabelInvalidates EdgeLabel = "invalidates"
)

// DecisionNode is one vertex of a reasoning trace's DAG.
type DecisionNode struct {
	ID         string                 `json:"id"`
	Type       NodeType               `json:"node_type"`
	Content    string                 `json:"content"`
	Reason     string                 `json:"reason,omitempty"`
	Confidence float64                `json:"confidence"`
	CreatedAt  time.Time              `json:"created_at"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// TraceEdge connects two DecisionNodes.
type TraceEdge struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Label  EdgeLabel `json:"label"`
	Weight float64   `json:"weight"`
}

// ReasoningTrace is a complete decision DAG: a root goal with branching
// decision points leading to actions and outcomes.
type ReasoningTrace struct {
	ID        string          `json:"id"`
	RootGoal  string          `json:"root_goal"`
	SessionID string          `json:"session_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Nodes     []*DecisionNode `json:"nodes"`
	Edges     []*TraceEdge    `json:"edges"`
	GitCommit string          `json:"git_commit,omitempty"`
	GitBranch string          `json:"git_branch,omitempty"`
}

// DecisionTree is a child-indexed view of a trace rooted at some node,
// suitable for DFS and path queries.
type DecisionTree struct {
	Root       string
	Nodes      map[string]*DecisionNode
	Children   map[string][]string
	EdgeLabels map[[2]string]EdgeLabel
}
