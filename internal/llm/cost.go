package llm

import "sync"

// ModelCostSummary aggregates cost and token usage for one model.
type ModelCostSummary struct {
	Model               string
	Calls               uint64
	TotalCost           float64
	TotalInputTokens    uint64
	TotalOutputTokens   uint64
}

// CostTracker accumulates per-model cost and usage across many completion
// calls. Safe for concurrent use.
type CostTracker struct {
	mu      sync.RWMutex
	byModel map[string]*ModelCostSummary
}

// NewCostTracker returns an empty tracker.
func NewCostTracker() *CostTracker {
	return &CostTracker{byModel: make(map[string]*ModelCostSummary)}
}

// Record adds one completion's cost and usage to the running total for
// model. A nil cost contributes zero dollars but still counts the call
// and its tokens.
func (t *CostTracker) Record(model string, usage TokenUsage, cost *float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.byModel[model]
	if !ok {
		s = &ModelCostSummary{Model: model}
		t.byModel[model] = s
	}
	s.Calls++
	s.TotalInputTokens += usage.InputTokens
	s.TotalOutputTokens += usage.OutputTokens
	if cost != nil {
		s.TotalCost += *cost
	}
}

// Summaries returns a snapshot of every tracked model's accumulated cost,
// safe for the caller to mutate.
func (t *CostTracker) Summaries() []ModelCostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ModelCostSummary, 0, len(t.byModel))
	for _, s := range t.byModel {
		out = append(out, *s)
	}
	return out
}

// TotalCost sums cost across every tracked model.
func (t *CostTracker) TotalCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for _, s := range t.byModel {
		total += s.TotalCost
	}
	return total
}

// Reset clears all accumulated cost and usage.
func (t *CostTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byModel = make(map[string]*ModelCostSummary)
}
