package trace

import (
	"fmt"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/google/uuid"
)

func newNode(typ NodeType, content string) *DecisionNode {
	return &DecisionNode{
		ID:        uuid.NewString(),
		Type:      typ,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// New creates a trace with a root Goal node.
func New(goal, sessionID string) *ReasoningTrace {
	goalNode := newNode(NodeGoal, goal)
	now := time.Now().UTC()
	return &ReasoningTrace{
		ID:        uuid.NewString(),
		RootGoal:  goalNode.ID,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
		Nodes:     []*DecisionNode{goalNode},
	}
}

// WithGitCommit sets the trace's linked commit.
func (t *ReasoningTrace) WithGitCommit(commit string) *ReasoningTrace {
	t.GitCommit = commit
	return t
}

// WithGitBranch sets the trace's linked branch.
func (t *ReasoningTrace) WithGitBranch(branch string) *ReasoningTrace {
	t.GitBranch = branch
	return t
}

func (t *ReasoningTrace) addNode(n *DecisionNode) string {
	t.Nodes = append(t.Nodes, n)
	t.UpdatedAt = time.Now().UTC()
	return n.ID
}

func (t *ReasoningTrace) addEdge(from, to string, label EdgeLabel) {
	t.Edges = append(t.Edges, &TraceEdge{From: from, To: to, Label: label, Weight: 1.0})
	t.UpdatedAt = time.Now().UTC()
}

// GetNode finds a node by ID.
func (t *ReasoningTrace) GetNode(id string) *DecisionNode {
	for _, n := range t.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Root returns the trace's goal node.
func (t *ReasoningTrace) Root() *DecisionNode {
	return t.GetNode(t.RootGoal)
}

// EdgesFrom returns every edge whose From matches nodeID.
func (t *ReasoningTrace) EdgesFrom(nodeID string) []*TraceEdge {
	var out []*TraceEdge
	for _, e := range t.Edges {
		if e.From == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns every edge whose To matches nodeID.
func (t *ReasoningTrace) EdgesTo(nodeID string) []*TraceEdge {
	var out []*TraceEdge
	for _, e := range t.Edges {
		if e.To == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// LogDecision appends one Decision node connected from parent by Spawns,
// then len(options) Option nodes; the option at chosenIndex is linked by
// Chooses and carries reason, all others by Rejects. Returns the chosen
// Option's ID.
func (t *ReasoningTrace) LogDecision(parentID, context string, options []string, chosenIndex int, reason string) string {
	decision := newNode(NodeDecision, context)
	decisionID := t.addNode(decision)
	t.addEdge(parentID, decisionID, LabelSpawns)

	chosenID := decisionID
	for i, opt := range options {
		option := newNode(NodeOption, opt)
		label := LabelRejects
		if i == chosenIndex {
			option.Reason = reason
			chosenID = option.ID
			label = LabelChooses
		}
		optionID := t.addNode(option)
		t.addEdge(decisionID, optionID, label)
	}
	return chosenID
}

// LogAction appends an Action (linked Implements from parent) and an
// Outcome (linked Produces from Action). Returns both IDs.
func (t *ReasoningTrace) LogAction(parentID, action, outcome string) (actionID, outcomeID string) {
	actionNode := newNode(NodeAction, action)
	actionID = t.addNode(actionNode)
	t.addEdge(parentID, actionID, LabelImplements)

	outcomeNode := newNode(NodeOutcome, outcome)
	outcomeID = t.addNode(outcomeNode)
	t.addEdge(actionID, outcomeID, LabelProduces)
	return actionID, outcomeID
}

// LogObservation appends an Observation linked LeadsTo from parent.
func (t *ReasoningTrace) LogObservation(parentID, text string) string {
	obs := newNode(NodeObservation, text)
	obsID := t.addNode(obs)
	t.addEdge(parentID, obsID, LabelLeadsTo)
	return obsID
}

// AddReference links two nodes with a References edge.
func (t *ReasoningTrace) AddReference(from, to string) {
	t.addEdge(from, to, LabelReferences)
}

func decisionNodeHash(n *DecisionNode) string { return n.ID }

// toGraph materializes the trace's Nodes/Edges into a dominikbraun/graph
// directed graph, which GetSubtree then walks rather than re-implementing
// DAG traversal over plain maps.
func (t *ReasoningTrace) toGraph() (graph.Graph[string, *DecisionNode], error) {
	g := graph.New(decisionNodeHash, graph.Directed())
	for _, n := range t.Nodes {
		if err := g.AddVertex(n); err != nil {
			return nil, fmt.Errorf("trace: add vertex %s: %w", n.ID, err)
		}
	}
	for _, e := range t.Edges {
		if err := g.AddEdge(e.From, e.To, graph.EdgeWeight(int(e.Weight)), graph.EdgeAttribute("label", string(e.Label))); err != nil {
			return nil, fmt.Errorf("trace: add edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// GetSubtree builds a child-indexed view of the DAG rooted at rootID,
// walking it with graph.DFS. Children order and edge labels still come
// from t.Edges (insertion order matters for LogDecision's chosen/rejected
// options), but reachability and vertex lookup are delegated to the graph.
func (t *ReasoningTrace) GetSubtree(rootID string) *DecisionTree {
	tree := &DecisionTree{
		Root:       rootID,
		Nodes:      map[string]*DecisionNode{},
		Children:   map[string][]string{},
		EdgeLabels: map[[2]string]EdgeLabel{},
	}

	g, err := t.toGraph()
	if err != nil {
		return tree
	}
	if _, err := g.Vertex(rootID); err != nil {
		return tree
	}

	_ = graph.DFS(g, rootID, func(id string) bool {
		node, err := g.Vertex(id)
		if err != nil {
			return true
		}
		tree.Nodes[id] = node

		var childIDs []string
		for _, e := range t.EdgesFrom(id) {
			tree.EdgeLabels[[2]string{id, e.To}] = e.Label
			childIDs = append(childIDs, e.To)
		}
		tree.Children[id] = childIDs
		return false
	})

	return tree
}

// GetTree builds the full decision tree from the root goal.
func (t *ReasoningTrace) GetTree() *DecisionTree {
	return t.GetSubtree(t.RootGoal)
}

// NodesByType returns every node of the given type.
func (t *ReasoningTrace) NodesByType(typ NodeType) []*DecisionNode {
	var out []*DecisionNode
	for _, n := range t.Nodes {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
