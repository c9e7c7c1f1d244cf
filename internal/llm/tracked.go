package llm

import "context"

// TrackedClient wraps a Client and records every completion's cost and
// token usage into a CostTracker.
type TrackedClient struct {
	inner   Client
	tracker *CostTracker
}

var _ Client = (*TrackedClient)(nil)

// NewTrackedClient wraps inner with a fresh cost tracker.
func NewTrackedClient(inner Client) *TrackedClient {
	return &TrackedClient{inner: inner, tracker: NewCostTracker()}
}

// Complete delegates to the inner client and records the resulting cost
// and usage before returning.
func (t *TrackedClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	resp, err := t.inner.Complete(ctx, req)
	if err != nil {
		return resp, err
	}
	t.tracker.Record(resp.Model, resp.Usage, resp.Cost)
	return resp, nil
}

// Embed delegates to the inner client without recording cost, since
// EmbeddingResponse carries no per-call dollar cost.
func (t *TrackedClient) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	return t.inner.Embed(ctx, req)
}

func (t *TrackedClient) Provider() Provider { return t.inner.Provider() }

func (t *TrackedClient) AvailableModels() []ModelSpec { return t.inner.AvailableModels() }

// GetCosts returns a snapshot of accumulated cost and usage per model.
func (t *TrackedClient) GetCosts() []ModelCostSummary { return t.tracker.Summaries() }

// TotalCost sums cost across every model this client has completed calls
// for.
func (t *TrackedClient) TotalCost() float64 { return t.tracker.TotalCost() }

// ResetCosts clears all accumulated cost and usage tracking.
func (t *TrackedClient) ResetCosts() { t.tracker.Reset() }
