package trace

import (
	"context"
	"fmt"
	"time"

	"unified-thinking/internal/memory"
)

const traceRootSubtype = "trace_root"

// Store persists and retrieves ReasoningTraces as subgraphs of a hypergraph
// memory.Store: each DecisionNode becomes a Decision-kind memory Node, each
// TraceEdge becomes a binary Reasoning-kind HyperEdge, and a trace_root
// anchor node links to the root-goal memory node.
type Store struct {
	memory memory.Store
}

// NewStore wraps a hypergraph memory store for trace persistence.
func NewStore(m memory.Store) *Store {
	return &Store{memory: m}
}

func (s *Store) decisionNodeToMemoryNode(n *DecisionNode, t *ReasoningTrace) *memory.Node {
	meta := map[string]interface{}{
		"trace_id":           t.ID,
		"decision_node_id":   n.ID,
		"decision_node_type": string(n.Type),
		"session_id":         t.SessionID,
	}
	if n.Reason != "" {
		meta["reason"] = n.Reason
	}
	for k, v := range n.Metadata {
		meta[k] = v
	}
	if t.GitCommit != "" {
		meta["git_commit"] = t.GitCommit
	}
	if t.GitBranch != "" {
		meta["git_branch"] = t.GitBranch
	}

	return &memory.Node{
		Kind:       memory.KindDecision,
		Subtype:    string(n.Type),
		Content:    n.Content,
		Tier:       memory.TierSession,
		Confidence: n.Confidence,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
		Metadata:   meta,
	}
}

func (s *Store) traceEdgeToHyperEdge(e *TraceEdge, fromID, toID string, t *ReasoningTrace) *memory.HyperEdge {
	return &memory.HyperEdge{
		Kind:   memory.EdgeReasoning,
		Label:  string(e.Label),
		Weight: e.Weight,
		Members: []memory.Member{
			{NodeID: fromID, Role: "from", Position: 0},
			{NodeID: toID, Role: "to", Position: 1},
		},
		Metadata: map[string]interface{}{
			"trace_id":         t.ID,
			"trace_edge_label": string(e.Label),
			"session_id":       t.SessionID,
		},
	}
}

// Save flattens a trace into the hypergraph: nodes, then edges, then a
// trace_root anchor node linked (Structural) to the root-goal memory node.
func (s *Store) Save(ctx context.Context, t *ReasoningTrace) error {
	idMap := make(map[string]string, len(t.Nodes))

	for _, n := range t.Nodes {
		mn := s.decisionNodeToMemoryNode(n, t)
		if err := s.memory.AddNode(ctx, mn); err != nil {
			return fmt.Errorf("trace store: save node %s: %w", n.ID, err)
		}
		idMap[n.ID] = mn.ID
	}

	for _, e := range t.Edges {
		fromID, ok1 := idMap[e.From]
		toID, ok2 := idMap[e.To]
		if !ok1 || !ok2 {
			continue
		}
		he := s.traceEdgeToHyperEdge(e, fromID, toID, t)
		if err := s.memory.AddEdge(ctx, he); err != nil {
			return fmt.Errorf("trace store: save edge %s->%s: %w", e.From, e.To, err)
		}
	}

	rootMemoryID, ok := idMap[t.RootGoal]
	if !ok {
		return fmt.Errorf("trace store: root goal %s not found among saved nodes", t.RootGoal)
	}

	rootMeta := map[string]interface{}{
		"trace_id":    t.ID,
		"root_goal_id": rootMemoryID,
		"session_id":  t.SessionID,
		"created_at":  t.CreatedAt.Format(time.RFC3339),
		"node_count":  len(t.Nodes),
		"edge_count":  len(t.Edges),
	}
	if t.GitCommit != "" {
		rootMeta["git_commit"] = t.GitCommit
	}
	if t.GitBranch != "" {
		rootMeta["git_branch"] = t.GitBranch
	}

	traceRoot := &memory.Node{
		Kind:     memory.KindDecision,
		Subtype:  traceRootSubtype,
		Content:  fmt.Sprintf("Trace: %s", t.ID),
		Tier:     memory.TierSession,
		Metadata: rootMeta,
	}
	if err := s.memory.AddNode(ctx, traceRoot); err != nil {
		return fmt.Errorf("trace store: save trace root: %w", err)
	}

	link := &memory.HyperEdge{
		Kind:  memory.EdgeStructural,
		Label: "trace_root",
		Members: []memory.Member{
			{NodeID: traceRoot.ID, Role: "from", Position: 0},
			{NodeID: rootMemoryID, Role: "to", Position: 1},
		},
	}
	if err := s.memory.AddEdge(ctx, link); err != nil {
		return fmt.Errorf("trace store: link trace root: %w", err)
	}
	return nil
}

func metaString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func (s *Store) findTraceRoot(ctx context.Context, traceID string) (*memory.Node, error) {
	nodes, err := s.memory.QueryNodes(ctx, memory.NodeQuery{Kinds: []memory.NodeKind{memory.KindDecision}, Limit: 10000})
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.Subtype == traceRootSubtype && metaString(n.Metadata, "trace_id") == traceID {
			return n, nil
		}
	}
	return nil, nil
}

func memoryNodeToDecisionNode(n *memory.Node) *DecisionNode {
	dn := &DecisionNode{
		ID:         metaString(n.Metadata, "decision_node_id"),
		Type:       NodeType(metaString(n.Metadata, "decision_node_type")),
		Content:    n.Content,
		Reason:     metaString(n.Metadata, "reason"),
		Confidence: n.Confidence,
		CreatedAt:  n.CreatedAt,
	}
	if dn.ID == "" {
		dn.ID = n.ID
	}
	return dn
}

// Load reconstructs a trace previously saved with Save. Node-type counts,
// edge counts, and (git_commit, git_branch, session_id) round-trip exactly.
func (s *Store) Load(ctx context.Context, traceID string) (*ReasoningTrace, error) {
	root, err := s.findTraceRoot(ctx, traceID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}

	allNodes, err := s.memory.QueryNodes(ctx, memory.NodeQuery{Kinds: []memory.NodeKind{memory.KindDecision}, Limit: 100000})
	if err != nil {
		return nil, err
	}

	memoryToDecision := map[string]string{}
	var decisionNodes []*DecisionNode
	for _, n := range allNodes {
		if n.Subtype == traceRootSubtype || metaString(n.Metadata, "trace_id") != traceID {
			continue
		}
		dn := memoryNodeToDecisionNode(n)
		memoryToDecision[n.ID] = dn.ID
		decisionNodes = append(decisionNodes, dn)
	}

	rootGoalMemoryID := metaString(root.Metadata, "root_goal_id")
	rootGoalID, ok := memoryToDecision[rootGoalMemoryID]
	if !ok {
		for _, dn := range decisionNodes {
			if dn.Type == NodeGoal {
				rootGoalID = dn.ID
				break
			}
		}
	}
	if rootGoalID == "" && len(decisionNodes) > 0 {
		rootGoalID = decisionNodes[0].ID
	}

	edges, err := s.loadTraceEdges(ctx, traceID, memoryToDecision)
	if err != nil {
		return nil, err
	}

	t := &ReasoningTrace{
		ID:        traceID,
		RootGoal:  rootGoalID,
		SessionID: metaString(root.Metadata, "session_id"),
		CreatedAt: root.CreatedAt,
		UpdatedAt: root.UpdatedAt,
		Nodes:     decisionNodes,
		Edges:     edges,
		GitCommit: metaString(root.Metadata, "git_commit"),
		GitBranch: metaString(root.Metadata, "git_branch"),
	}
	return t, nil
}

// loadTraceEdges walks hyperedges adjacent to each reconstructed node,
// filters by metadata trace_id, and deduplicates (from,to) pairs.
func (s *Store) loadTraceEdges(ctx context.Context, traceID string, memoryToDecision map[string]string) ([]*TraceEdge, error) {
	seen := map[[2]string]bool{}
	var out []*TraceEdge

	for memID, decID := range memoryToDecision {
		edges, err := s.memory.GetEdgesForNode(ctx, memID)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if metaString(e.Metadata, "trace_id") != traceID || len(e.Members) < 2 {
				continue
			}
			fromMemID, toMemID := "", ""
			for _, m := range e.Members {
				switch m.Role {
				case "from":
					fromMemID = m.NodeID
				case "to":
					toMemID = m.NodeID
				}
			}
			fromDecID, ok1 := memoryToDecision[fromMemID]
			toDecID, ok2 := memoryToDecision[toMemID]
			if !ok1 || !ok2 || fromDecID != decID && toDecID != decID {
				continue
			}
			key := [2]string{fromDecID, toDecID}
			if seen[key] {
				continue
			}
			seen[key] = true
			label := metaString(e.Metadata, "trace_edge_label")
			out = append(out, &TraceEdge{From: fromDecID, To: toDecID, Label: EdgeLabel(label), Weight: e.Weight})
		}
	}
	return out, nil
}
