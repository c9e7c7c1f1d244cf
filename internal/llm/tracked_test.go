package llm

import (
	"context"
	"testing"
)

func TestTrackedClient_AccumulatesCostAcrossCalls(t *testing.T) {
	costA := 0.01
	costB := 0.02
	mock := NewMockClient(
		CompletionResponse{Model: "m1", Usage: TokenUsage{InputTokens: 100, OutputTokens: 50}, Cost: &costA},
		CompletionResponse{Model: "m1", Usage: TokenUsage{InputTokens: 200, OutputTokens: 60}, Cost: &costB},
	)
	tracked := NewTrackedClient(mock)

	for i := 0; i < 2; i++ {
		if _, err := tracked.Complete(context.Background(), NewCompletionRequest()); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
	}

	summaries := tracked.GetCosts()
	if len(summaries) != 1 {
		t.Fatalf("expected 1 tracked model, got %d", len(summaries))
	}
	s := summaries[0]
	if s.Calls != 2 {
		t.Errorf("Calls = %d, want 2", s.Calls)
	}
	if s.TotalInputTokens != 300 || s.TotalOutputTokens != 110 {
		t.Errorf("unexpected token totals: %+v", s)
	}
	wantCost := costA + costB
	if s.TotalCost != wantCost {
		t.Errorf("TotalCost = %v, want %v", s.TotalCost, wantCost)
	}
	if tracked.TotalCost() != wantCost {
		t.Errorf("TrackedClient.TotalCost() = %v, want %v", tracked.TotalCost(), wantCost)
	}
}

func TestTrackedClient_ResetCosts(t *testing.T) {
	cost := 0.05
	mock := NewMockClient(CompletionResponse{Model: "m1", Cost: &cost})
	tracked := NewTrackedClient(mock)

	tracked.Complete(context.Background(), NewCompletionRequest())
	if tracked.TotalCost() == 0 {
		t.Fatal("expected nonzero cost before reset")
	}

	tracked.ResetCosts()
	if tracked.TotalCost() != 0 {
		t.Errorf("expected zero cost after reset, got %v", tracked.TotalCost())
	}
}

func TestTrackedClient_DoesNotRecordOnError(t *testing.T) {
	mock := &MockClient{Errs: []error{context.DeadlineExceeded}}
	tracked := NewTrackedClient(mock)

	_, err := tracked.Complete(context.Background(), NewCompletionRequest())
	if err == nil {
		t.Fatal("expected an error to propagate")
	}
	if len(tracked.GetCosts()) != 0 {
		t.Errorf("expected no cost recorded for a failed call")
	}
}
