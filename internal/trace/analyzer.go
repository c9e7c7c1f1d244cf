package trace

import "fmt"

// DecisionPath is one root-to-leaf walk through a trace.
type DecisionPath struct {
	NodeIDs []string
	Depth   int
}

// TraceAnalyzer answers path/confidence/narrative queries over a trace.
type TraceAnalyzer struct {
	trace *ReasoningTrace
}

// NewAnalyzer wraps a trace for querying.
func NewAnalyzer(t *ReasoningTrace) *TraceAnalyzer {
	return &TraceAnalyzer{trace: t}
}

func (a *TraceAnalyzer) walk(nodeID string, path []string, out *[]DecisionPath) {
	path = append(path, nodeID)
	children := a.trace.EdgesFrom(nodeID)
	if len(children) == 0 {
		*out = append(*out, DecisionPath{NodeIDs: append([]string{}, path...), Depth: len(path) - 1})
		return
	}
	for _, e := range children {
		a.walk(e.To, path, out)
	}
}

// AllPaths enumerates every root-to-leaf decision path.
func (a *TraceAnalyzer) AllPaths() []DecisionPath {
	var out []DecisionPath
	a.walk(a.trace.RootGoal, nil, &out)
	return out
}

// WinningPath returns the path that contains a Chooses edge, if any.
func (a *TraceAnalyzer) WinningPath() (*DecisionPath, bool) {
	for _, p := range a.AllPaths() {
		for i := 0; i+1 < len(p.NodeIDs); i++ {
			for _, e := range a.trace.EdgesFrom(p.NodeIDs[i]) {
				if e.To == p.NodeIDs[i+1] && e.Label == LabelChooses {
					path := p
					return &path, true
				}
			}
		}
	}
	return nil, false
}

// RejectedOption is a rejected option with its parent decision.
type RejectedOption struct {
	Decision *DecisionNode
	Option   *DecisionNode
}

// ChosenOption is a chosen option with its parent decision.
type ChosenOption struct {
	Decision *DecisionNode
	Option   *DecisionNode
}

// RejectedOptions lists every option rejected by a decision, paired with its
// parent decision node.
func (a *TraceAnalyzer) RejectedOptions() []RejectedOption {
	var out []RejectedOption
	for _, n := range a.trace.NodesByType(NodeDecision) {
		for _, e := range a.trace.EdgesFrom(n.ID) {
			if e.Label == LabelRejects {
				if opt := a.trace.GetNode(e.To); opt != nil {
					out = append(out, RejectedOption{Decision: n, Option: opt})
				}
			}
		}
	}
	return out
}

// ChosenOptions lists every option chosen by a decision, paired with its
// parent decision node.
func (a *TraceAnalyzer) ChosenOptions() []ChosenOption {
	var out []ChosenOption
	for _, n := range a.trace.NodesByType(NodeDecision) {
		for _, e := range a.trace.EdgesFrom(n.ID) {
			if e.Label == LabelChooses {
				if opt := a.trace.GetNode(e.To); opt != nil {
					out = append(out, ChosenOption{Decision: n, Option: opt})
				}
			}
		}
	}
	return out
}

// ActionOutcome pairs an action with the outcome it produced.
type ActionOutcome struct {
	Action  *DecisionNode
	Outcome *DecisionNode
}

// ActionOutcomes pairs every action with its outcome via Produces edges.
func (a *TraceAnalyzer) ActionOutcomes() []ActionOutcome {
	var out []ActionOutcome
	for _, n := range a.trace.NodesByType(NodeAction) {
		for _, e := range a.trace.EdgesFrom(n.ID) {
			if e.Label == LabelProduces {
				if outcome := a.trace.GetNode(e.To); outcome != nil {
					out = append(out, ActionOutcome{Action: n, Outcome: outcome})
				}
			}
		}
	}
	return out
}

// OverallConfidence is the arithmetic mean of chosen-option and outcome
// confidences (1.0 if there are none).
func (a *TraceAnalyzer) OverallConfidence() float64 {
	var sum float64
	var count int
	for _, c := range a.ChosenOptions() {
		sum += c.Option.Confidence
		count++
	}
	for _, ao := range a.ActionOutcomes() {
		sum += ao.Outcome.Confidence
		count++
	}
	if count == 0 {
		return 1.0
	}
	return sum / float64(count)
}

// Narrative renders a human-readable summary of the trace: its goal, every
// chosen option with its reason, every action's outcome, and the overall
// confidence.
func (a *TraceAnalyzer) Narrative() string {
	root := a.trace.Root()
	if root == nil {
		return "empty trace"
	}
	narrative := fmt.Sprintf("Goal: %s\n", root.Content)

	for _, c := range a.ChosenOptions() {
		narrative += fmt.Sprintf("Decision %q -> chose %q", c.Decision.Content, c.Option.Content)
		if c.Option.Reason != "" {
			narrative += fmt.Sprintf(" (because %s)", c.Option.Reason)
		}
		narrative += "\n"
	}
	for _, ao := range a.ActionOutcomes() {
		narrative += fmt.Sprintf("Action %q -> %s\n", ao.Action.Content, ao.Outcome.Content)
	}
	narrative += fmt.Sprintf("Overall confidence: %.2f\n", a.OverallConfidence())
	return narrative
}
